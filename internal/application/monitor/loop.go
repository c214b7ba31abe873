// Package monitor is the streaming event loop: one cooperative task, one
// push-feed connection, continuous re-evaluation of the baskets touched by
// each inbound frame.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/basketbot/internal/application/execution"
	"github.com/alejandrodnm/basketbot/internal/application/pricing"
	"github.com/alejandrodnm/basketbot/internal/application/risk"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// heartbeatInterval bounds the feed receive timeout so the loop wakes for
// bookkeeping (risk check, state persist, summary) even with zero traffic.
const heartbeatInterval = 15 * time.Second

// Options configures a Loop.
type Options struct {
	RunDuration     time.Duration
	Debounce        time.Duration
	SummaryInterval time.Duration
	MaxTokens       int // 0 = no pruning
	SharesPerLeg    float64
}

// Loop owns the in-memory books and drives detection and execution.
// Everything here runs on one goroutine: books, debounce timestamps and
// RuntimeState are never touched concurrently.
type Loop struct {
	opts     Options
	feed     ports.MarketFeed
	detector *pricing.Detector
	guard    *risk.Guard
	engine   *execution.Engine // nil in observe mode
	store    ports.StateStore
	sink     ports.EventSink
	notifier ports.Notifier
	metrics  MetricsSink
	state    *domain.RuntimeState

	baskets  []domain.EventBasket
	books    map[string]domain.OrderBook
	byToken  map[string][]int // token id -> indices into baskets
	lastEval map[string]time.Time
	stats    domain.RunStats
}

// MetricsSink receives one record per evaluation tick. May be nil.
type MetricsSink interface {
	Write(v any) error
}

// tickMetrics is the JSONL record emitted per evaluation tick.
type tickMetrics struct {
	TS         time.Time `json:"ts"`
	Touched    int       `json:"touched_tokens"`
	Evaluated  int       `json:"evaluated_baskets"`
	Candidates int       `json:"candidates"`
	Actionable int       `json:"actionable"`
	BestEdge   float64   `json:"best_edge"`
}

// New builds the loop for a fixed basket set. The basket set is immutable
// for the lifetime of the loop; a universe refresh means a new loop.
func New(opts Options, baskets []domain.EventBasket, feed ports.MarketFeed, detector *pricing.Detector, guard *risk.Guard, engine *execution.Engine, store ports.StateStore, sink ports.EventSink, notifier ports.Notifier, metrics MetricsSink, state *domain.RuntimeState) *Loop {
	l := &Loop{
		opts:     opts,
		feed:     feed,
		detector: detector,
		guard:    guard,
		engine:   engine,
		store:    store,
		sink:     sink,
		notifier: notifier,
		metrics:  metrics,
		state:    state,
		books:    make(map[string]domain.OrderBook),
		byToken:  make(map[string][]int),
		lastEval: make(map[string]time.Time),
	}
	l.baskets = l.pruneBaskets(baskets)
	for i, b := range l.baskets {
		for _, id := range b.TokenIDs() {
			l.byToken[id] = append(l.byToken[id], i)
		}
	}
	return l
}

// pruneBaskets drops whole baskets past the subscription cap. A basket with
// an unsubscribed leg can never be fully priced, so dropping lowest-priority
// baskets beats dropping individual tokens.
func (l *Loop) pruneBaskets(baskets []domain.EventBasket) []domain.EventBasket {
	if l.opts.MaxTokens <= 0 {
		return baskets
	}
	kept := make([]domain.EventBasket, 0, len(baskets))
	total := 0
	for _, b := range baskets {
		n := len(b.Legs)
		if total+n > l.opts.MaxTokens {
			break
		}
		total += n
		kept = append(kept, b)
	}
	if dropped := len(baskets) - len(kept); dropped > 0 {
		slog.Warn("basket set pruned to subscription cap",
			"cap", l.opts.MaxTokens, "kept", len(kept), "dropped", dropped)
	}
	return kept
}

// Run drives the loop until the run deadline, an unrecoverable feed error,
// or context cancellation. Returning nil means a clean deadline exit.
// Reconnect policy belongs to the caller, not to this loop.
func (l *Loop) Run(ctx context.Context) error {
	tokens := make([]string, 0, len(l.byToken))
	for id := range l.byToken {
		tokens = append(tokens, id)
	}
	if len(tokens) == 0 {
		return errors.New("monitor: no tokens to subscribe")
	}

	if err := l.feed.Subscribe(ctx, tokens); err != nil {
		return fmt.Errorf("monitor: subscribe: %w", err)
	}
	defer l.feed.Close()

	deadline := time.Now().Add(l.opts.RunDuration)
	lastSummary := time.Now()

	slog.Info("monitor loop started",
		"baskets", len(l.baskets), "tokens", len(tokens),
		"deadline", deadline.Format(time.RFC3339))

	for {
		now := time.Now()
		if !now.Before(deadline) {
			slog.Info("run deadline reached")
			l.summarize()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// The receive timeout shrinks as the deadline approaches so the
		// loop never oversleeps its own shutdown.
		timeout := heartbeatInterval
		if rest := deadline.Sub(now); rest < timeout {
			timeout = rest
		}

		updates, err := l.feed.Next(timeout)
		switch {
		case errors.Is(err, ports.ErrFeedTimeout):
			l.stats.Idles++
			l.heartbeat(ctx, time.Now(), &lastSummary)
			continue
		case err != nil:
			return fmt.Errorf("monitor: feed: %w", err)
		}

		l.stats.Frames++
		touched := l.applyUpdates(updates)
		if len(touched) > 0 {
			l.evaluate(ctx, touched, time.Now())
		}
		l.heartbeat(ctx, time.Now(), &lastSummary)
	}
}

// applyUpdates folds one frame's updates into the books, strictly in
// receipt order, and returns the set of touched token ids.
func (l *Loop) applyUpdates(updates []ports.BookUpdate) map[string]bool {
	touched := make(map[string]bool)
	for _, u := range updates {
		if _, watched := l.byToken[u.TokenID]; !watched {
			continue
		}
		if u.Snapshot != nil {
			l.books[u.TokenID] = *u.Snapshot
		} else {
			book, has := l.books[u.TokenID]
			if !has {
				// Deltas before the first snapshot have no base to apply to.
				continue
			}
			for _, d := range u.Deltas {
				book.ApplyLevel(d.Side, d.Price, d.Size)
			}
			book.CapturedAt = time.Now()
			l.books[u.TokenID] = book
		}
		l.stats.BookUpdates++
		touched[u.TokenID] = true
	}
	return touched
}

// evaluate re-prices every basket referencing a touched token, debounced
// per basket, and routes actionable candidates to the execution engine.
func (l *Loop) evaluate(ctx context.Context, touched map[string]bool, now time.Time) {
	indices := make(map[int]bool)
	for id := range touched {
		for _, i := range l.byToken[id] {
			indices[i] = true
		}
	}

	due := make([]domain.EventBasket, 0, len(indices))
	for i := range indices {
		b := l.baskets[i]
		if last, ok := l.lastEval[b.Key]; ok && now.Sub(last) < l.opts.Debounce {
			l.stats.Debounced++
			continue
		}
		l.lastEval[b.Key] = now
		due = append(due, b)
	}
	if len(due) == 0 {
		return
	}
	l.stats.Evaluations++

	priced := pricing.PriceBaskets(due, l.books, l.opts.SharesPerLeg)
	candidates := l.detector.Evaluate(priced, now)
	actionable := l.detector.Actionable(candidates)

	l.stats.Candidates += len(candidates)
	l.stats.Actionable += len(actionable)

	if l.metrics != nil {
		best := 0.0
		if len(candidates) > 0 {
			best = candidates[0].GrossEdge
		}
		_ = l.metrics.Write(tickMetrics{
			TS: now, Touched: len(touched), Evaluated: len(due),
			Candidates: len(candidates), Actionable: len(actionable), BestEdge: best,
		})
	}

	if len(actionable) == 0 {
		return
	}

	if err := l.sink.RecordCandidates(ctx, actionable); err != nil {
		slog.Warn("failed to record candidates", "error", err)
	}
	if l.notifier != nil {
		if err := l.notifier.Notify(ctx, actionable); err != nil {
			slog.Warn("notify failed", "error", err)
		}
	}

	// A halt blocks execution but the loop keeps observing and logging.
	if l.engine == nil || l.guard.Halted() {
		return
	}
	for _, cand := range actionable {
		report, err := l.engine.AttemptBasket(ctx, cand, time.Now())
		if err != nil {
			slog.Warn("execution attempt errored", "basket", cand.Basket.Key, "error", err)
		}
		if report != nil {
			l.stats.Attempts++
		}
		if l.guard.Halted() {
			break
		}
	}
}

// heartbeat runs the idle bookkeeping: risk check, state persist and the
// periodic summary.
func (l *Loop) heartbeat(ctx context.Context, now time.Time, lastSummary *time.Time) {
	l.guard.Check(ctx, now)

	if now.Sub(*lastSummary) >= l.opts.SummaryInterval {
		l.summarize()
		*lastSummary = now
		if err := l.store.Save(ctx, *l.state); err != nil {
			slog.Warn("failed to persist runtime state", "error", err)
		}
	}
}

// summarize logs the interval counters and resets them.
func (l *Loop) summarize() {
	slog.Info("monitor summary",
		"frames", l.stats.Frames,
		"book_updates", l.stats.BookUpdates,
		"evaluations", l.stats.Evaluations,
		"debounced", l.stats.Debounced,
		"candidates", l.stats.Candidates,
		"actionable", l.stats.Actionable,
		"attempts", l.stats.Attempts,
		"idles", l.stats.Idles,
		"halted", l.guard.Halted())
	l.stats.Reset()
}
