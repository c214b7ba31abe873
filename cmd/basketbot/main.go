package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/adapters/notify"
	"github.com/alejandrodnm/basketbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/basketbot/internal/adapters/simmer"
	"github.com/alejandrodnm/basketbot/internal/adapters/storage"
	"github.com/alejandrodnm/basketbot/internal/application/execution"
	"github.com/alejandrodnm/basketbot/internal/application/grouper"
	"github.com/alejandrodnm/basketbot/internal/application/monitor"
	"github.com/alejandrodnm/basketbot/internal/application/pricing"
	"github.com/alejandrodnm/basketbot/internal/application/risk"
	"github.com/alejandrodnm/basketbot/internal/application/universe"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// Exit codes. They distinguish "nothing to do" from "configuration error"
// so supervisors can decide whether a restart makes sense.
const (
	exitOK            = 0
	exitError         = 1 // unrecoverable runtime error
	exitEmptyUniverse = 2
	exitPolicy        = 3 // live mode rejected before any network side effect
	exitBackendInit   = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "price the universe once and exit (no streaming)")
	execute := flag.Bool("execute", false, "enable live execution (requires -confirm-live=YES)")
	confirmLive := flag.String("confirm-live", "", "literal YES to confirm real-money execution")
	backendFlag := flag.String("backend", "", "execution backend: auto|clob|simmer (overrides config)")
	durationMin := flag.Int("duration", 0, "run duration in minutes (overrides config)")
	resetHalt := flag.Bool("reset-halt", false, "clear a persisted halt and continue")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full candidate tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return exitError
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *backendFlag != "" {
		cfg.Execution.Backend = *backendFlag
	}
	if *durationMin > 0 {
		cfg.Stream.RunMinutes = *durationMin
	}
	setupLogger(cfg.Log)

	slog.Info("basketbot starting",
		"config", *configPath,
		"mode", cfg.Universe.Mode,
		"execute", *execute,
		"once", *once,
		"run_duration", cfg.RunDuration(),
	)

	// Backend selection is pure and fails closed before anything touches
	// the network.
	backend, err := execution.Select(*execute, *confirmLive, cfg.Execution.Backend, os.Getenv)
	if err != nil {
		slog.Error("execution backend rejected", "err", err)
		return exitPolicy
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Runtime state: load previous day's file or start fresh.
	stateStore := storage.NewFileStateStore(cfg.Storage.StatePath)
	state, found, err := stateStore.Load(ctx)
	if err != nil {
		slog.Error("failed to load runtime state", "err", err)
		return exitError
	}
	if !found {
		state = domain.NewRuntimeState(time.Now())
	}
	if state.RollIfNewDay(time.Now()) {
		slog.Info("daily state rollover at startup", "day", state.Day)
	}
	if *resetHalt && state.Halted {
		slog.Warn("operator reset: clearing halt", "previous_reason", state.HaltReason)
		state.ClearHalt()
	}
	if err := stateStore.Save(ctx, state); err != nil {
		slog.Error("failed to persist runtime state", "err", err)
		return exitError
	}

	sink, err := storage.NewSQLiteEventLog(cfg.Storage.EventsDSN)
	if err != nil {
		slog.Error("failed to open event log", "err", err, "dsn", cfg.Storage.EventsDSN)
		return exitError
	}
	defer sink.Close()

	metrics := storage.NewMetricsWriter(cfg.Storage.MetricsPath)
	defer metrics.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase)

	// Universe discovery and grouping.
	builder, err := universe.NewBuilder(client, cfg.Universe)
	if err != nil {
		slog.Error("invalid universe config", "err", err)
		return exitError
	}
	markets, err := builder.Build(ctx)
	if err != nil {
		if errors.Is(err, universe.ErrEmptyUniverse) {
			slog.Warn("universe is empty, nothing to monitor")
			return exitEmptyUniverse
		}
		slog.Error("universe build failed", "err", err)
		return exitError
	}
	baskets := grouper.Group(markets)
	if len(baskets) == 0 {
		slog.Warn("no baskets after grouping, nothing to monitor")
		return exitEmptyUniverse
	}

	// Backend initialization. Failures here are configuration/account
	// problems, distinct from policy rejections.
	var executor ports.BasketExecutor
	switch backend {
	case execution.BackendCLOB:
		authed := client.WithCreds(polymarket.APICreds{
			Key:        os.Getenv("POLY_API_KEY"),
			Secret:     os.Getenv("POLY_SECRET"),
			Passphrase: os.Getenv("POLY_PASSPHRASE"),
			Address:    os.Getenv("POLY_ADDRESS"),
		})
		executor, err = polymarket.NewCLOBExecutor(authed)
		if err != nil {
			slog.Error("clob backend init failed", "err", err)
			return exitBackendInit
		}
	case execution.BackendSimmer:
		broker, err := simmer.New(cfg.API.SimmerBase, os.Getenv("SIMMER_API_KEY"))
		if err != nil {
			slog.Error("simmer backend init failed", "err", err)
			return exitBackendInit
		}
		if err := broker.ValidateAccount(ctx); err != nil {
			slog.Error("simmer account validation failed", "err", err)
			return exitBackendInit
		}
		baskets, err = broker.ResolveMappings(ctx, baskets)
		if err != nil {
			slog.Error("simmer mapping resolution failed", "err", err)
			return exitBackendInit
		}
		if len(baskets) == 0 {
			slog.Warn("no baskets with full broker mappings")
			return exitEmptyUniverse
		}
		executor = broker
	}

	// Portfolio reads need an address even in observe mode; without one the
	// guard simply skips the drawdown check.
	var portfolio ports.PortfolioProvider
	if addr := os.Getenv("POLY_ADDRESS"); addr != "" {
		portfolio = client.WithCreds(polymarket.APICreds{Address: addr})
	}

	guard := risk.NewGuard(cfg.Risk, cfg.PnLCheckInterval(), portfolio, stateStore, sink, &state)
	detector := pricing.NewDetector(cfg.Detector)
	notifier := notify.NewConsole(*table, cfg.Detector.MinEdgeCents)

	var engine *execution.Engine
	if executor != nil {
		engine = execution.NewEngine(cfg.Execution, cfg.ReconcileInterval(), cfg.Cooldown(),
			cfg.Detector.SharesPerLeg, executor, guard, stateStore, sink, &state)
	}

	if *once {
		return runOnce(ctx, cfg, client, detector, notifier, sink, baskets)
	}

	feed := polymarket.NewFeed(cfg.API.WSBase)
	loop := monitor.New(monitor.Options{
		RunDuration:     cfg.RunDuration(),
		Debounce:        cfg.Debounce(),
		SummaryInterval: cfg.SummaryInterval(),
		MaxTokens:       cfg.Stream.MaxSubscribedTokens,
		SharesPerLeg:    cfg.Detector.SharesPerLeg,
	}, baskets, feed, detector, guard, engine, stateStore, sink, notifier, metrics, &state)

	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("basketbot stopped by signal")
			return exitOK
		}
		slog.Error("monitor loop exited with error", "err", err)
		return exitError
	}

	slog.Info("basketbot stopped cleanly")
	return exitOK
}

// runOnce prices the whole universe one time against REST books: no stream,
// no execution. Useful to eyeball the edge landscape before monitoring.
func runOnce(ctx context.Context, cfg *config.Config, client *polymarket.Client, detector *pricing.Detector, notifier *notify.Console, sink *storage.SQLiteEventLog, baskets []domain.EventBasket) int {
	tokens := make([]string, 0)
	seen := make(map[string]bool)
	for _, b := range baskets {
		for _, id := range b.TokenIDs() {
			if !seen[id] {
				seen[id] = true
				tokens = append(tokens, id)
			}
		}
	}

	books, err := client.FetchOrderBooks(ctx, tokens)
	if err != nil {
		slog.Error("book fetch failed", "err", err)
		return exitError
	}

	now := time.Now()
	priced := pricing.PriceBaskets(baskets, books, cfg.Detector.SharesPerLeg)
	candidates := detector.Evaluate(priced, now)
	actionable := detector.Actionable(candidates)

	slog.Info("one-shot evaluation",
		"baskets", len(baskets), "priced", len(priced),
		"candidates", len(candidates), "actionable", len(actionable))

	if err := notifier.Notify(ctx, candidates); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	if len(actionable) > 0 {
		if err := sink.RecordCandidates(ctx, actionable); err != nil {
			slog.Warn("failed to record candidates", "err", err)
		}
	}
	return exitOK
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
