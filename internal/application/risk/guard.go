// Package risk implements the daily drawdown guard.
//
// State machine: ACTIVE -> HALTED, with HALTED terminal for the rest of the
// local day. A halt blocks new execution attempts but never observation:
// the monitor keeps streaming and logging while halted.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// Guard owns the halt state machine. It is driven from the single control
// thread, so RuntimeState needs no locking.
type Guard struct {
	cfg       config.RiskConfig
	interval  time.Duration
	portfolio ports.PortfolioProvider // nil when no portfolio source is available
	store     ports.StateStore
	sink      ports.EventSink
	state     *domain.RuntimeState
}

// NewGuard wires the guard over the shared runtime state.
func NewGuard(cfg config.RiskConfig, interval time.Duration, portfolio ports.PortfolioProvider, store ports.StateStore, sink ports.EventSink, state *domain.RuntimeState) *Guard {
	return &Guard{
		cfg:       cfg,
		interval:  interval,
		portfolio: portfolio,
		store:     store,
		sink:      sink,
		state:     state,
	}
}

// Halted reports whether execution is currently blocked.
func (g *Guard) Halted() bool { return g.state.Halted }

// Check runs one guard pass: day rollover, then a bounded-interval portfolio
// read feeding the drawdown comparison. Portfolio read failures are logged
// and skipped; they never halt by themselves.
func (g *Guard) Check(ctx context.Context, now time.Time) {
	if g.state.RollIfNewDay(now) {
		slog.Info("daily state rollover", "day", g.state.Day)
		g.persist(ctx)
	}

	if g.portfolio == nil || g.cfg.DailyLossLimitUSD <= 0 {
		return
	}
	if g.state.LastPnLCheck != nil && now.Sub(*g.state.LastPnLCheck) < g.interval {
		return
	}

	value, err := g.portfolio.PortfolioValue(ctx)
	if err != nil {
		slog.Warn("portfolio read failed, skipping risk check", "error", err)
		return
	}

	t := now
	g.state.LastPnLCheck = &t

	if g.state.StartPnLTotal == nil {
		baseline := value
		g.state.StartPnLTotal = &baseline
		slog.Info("risk baseline captured", "baseline", fmt.Sprintf("$%.2f", baseline))
		g.persist(ctx)
		return
	}

	drawdown := *g.state.StartPnLTotal - value
	if drawdown >= g.cfg.DailyLossLimitUSD {
		reason := fmt.Sprintf("Daily loss guard: drawdown $%.2f >= limit $%.2f",
			drawdown, g.cfg.DailyLossLimitUSD)
		g.Halt(ctx, reason, now)
		return
	}
	g.persist(ctx)
}

// Halt transitions to HALTED. Idempotent: a second call within the same day
// does not log or notify again.
func (g *Guard) Halt(ctx context.Context, reason string, now time.Time) {
	if g.state.Halted {
		return
	}
	g.state.Halted = true
	g.state.HaltReason = reason

	slog.Error("execution halted for the rest of the day", "reason", reason)
	if g.sink != nil {
		if err := g.sink.RecordHalt(ctx, reason, now); err != nil {
			slog.Warn("failed to record halt event", "error", err)
		}
	}
	g.persist(ctx)
}

func (g *Guard) persist(ctx context.Context) {
	if err := g.store.Save(ctx, *g.state); err != nil {
		slog.Warn("failed to persist runtime state", "error", err)
	}
}
