// Package execution holds backend selection and the basket execution
// engine: submit all legs, reconcile fills, cancel and unwind on partial
// failure.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/application/risk"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// Engine serializes basket execution attempts on the single control thread.
// There is no exchange-side atomicity across legs: the engine approximates
// it with reconciliation plus unwind.
type Engine struct {
	cfg       config.ExecutionConfig
	reconcile time.Duration
	cooldown  time.Duration
	shares    float64 // per-leg share count, same one pricing used

	executor ports.BasketExecutor
	guard    *risk.Guard
	store    ports.StateStore
	sink     ports.EventSink
	state    *domain.RuntimeState

	cooldowns map[string]time.Time
	attempts  map[string]int
}

// NewEngine wires the engine over the shared runtime state.
func NewEngine(cfg config.ExecutionConfig, reconcile, cooldown time.Duration, shares float64, executor ports.BasketExecutor, guard *risk.Guard, store ports.StateStore, sink ports.EventSink, state *domain.RuntimeState) *Engine {
	return &Engine{
		cfg:       cfg,
		reconcile: reconcile,
		cooldown:  cooldown,
		shares:    shares,
		executor:  executor,
		guard:     guard,
		store:     store,
		sink:      sink,
		state:     state,
		cooldowns: make(map[string]time.Time),
		attempts:  make(map[string]int),
	}
}

// Eligible reports whether an attempt for this basket would pass every gate
// right now: halt, cooldown, per-basket attempt cap, daily caps.
func (e *Engine) Eligible(basket domain.EventBasket, cost float64, now time.Time) bool {
	if e.guard.Halted() {
		return false
	}
	if until, ok := e.cooldowns[basket.Key]; ok && now.Before(until) {
		return false
	}
	if e.attempts[basket.Key] >= e.cfg.MaxAttemptsPerBasket {
		return false
	}
	if e.state.ExecutionsToday >= e.cfg.MaxExecutionsPerDay {
		return false
	}
	if e.state.NotionalToday+cost > e.cfg.MaxNotionalPerDay {
		return false
	}
	return true
}

// AttemptBasket runs one full submit/reconcile/unwind cycle for the
// candidate. Gate failures return (nil, nil): not attempting is not an
// error. The cooldown window starts at submit regardless of outcome.
func (e *Engine) AttemptBasket(ctx context.Context, cand domain.Candidate, now time.Time) (*domain.ExecutionReport, error) {
	basket := cand.Basket
	if !e.Eligible(basket, cand.BasketCost, now) {
		return nil, nil
	}

	e.attempts[basket.Key]++
	e.cooldowns[basket.Key] = now.Add(e.cooldown)

	report := domain.ExecutionReport{
		AttemptID:   uuid.New().String(),
		BasketKey:   basket.Key,
		BasketTitle: basket.Title,
		Backend:     e.executor.Name(),
		Shares:      e.shares,
		StartedAt:   now,
	}

	slog.Info("executing basket",
		"attempt", report.AttemptID, "basket", basket.Key, "backend", report.Backend,
		"legs", len(basket.Legs), "edge", fmt.Sprintf("$%.3f", cand.GrossEdge))

	orders, err := e.executor.SubmitBasket(ctx, basket, report.Shares)
	if err != nil {
		// Partial submit: kill whatever did get placed before reporting.
		for _, o := range orders {
			if cerr := e.executor.Cancel(ctx, o.OrderID); cerr != nil {
				slog.Warn("cancel after failed submit", "order", o.OrderID, "error", cerr)
			} else {
				report.Cancelled++
			}
		}
		report.Outcome = domain.ExecutionRejected
		report.Error = err.Error()
		e.finish(ctx, &report, true)
		return &report, nil
	}

	minRatio, fills := e.reconcileFills(ctx, orders)
	report.MinFillRatio = minRatio

	if minRatio >= e.cfg.MinFillRatio {
		report.Outcome = domain.ExecutionFilled
		report.Notional = filledNotional(fills)
		e.finish(ctx, &report, false)
		return &report, nil
	}

	// Below threshold: cancel what is still open, unwind what did fill.
	report.Outcome = domain.ExecutionPartial
	report.Error = fmt.Sprintf("min fill ratio %.2f below threshold %.2f", minRatio, e.cfg.MinFillRatio)
	report.Notional = filledNotional(fills)

	for _, o := range orders {
		f, ok := fills[o.OrderID]
		if ok && f.Open {
			if err := e.executor.Cancel(ctx, o.OrderID); err != nil {
				slog.Warn("cancel open order", "order", o.OrderID, "error", err)
			} else {
				report.Cancelled++
			}
		}
		if e.cfg.UnwindOnPartial && ok && f.FilledShares > 0 {
			leg, found := legByToken(basket, o.TokenID)
			if !found {
				continue
			}
			if err := e.executor.Unwind(ctx, leg, f.FilledShares); err != nil {
				slog.Warn("unwind filled leg", "token", o.TokenID, "error", err)
			} else {
				report.Unwound++
			}
		}
	}

	e.finish(ctx, &report, true)
	return &report, nil
}

// reconcileFills polls until every order settles above threshold or the
// attempt budget runs out. Poll failures consume an attempt and keep going.
func (e *Engine) reconcileFills(ctx context.Context, orders []domain.SubmittedOrder) (float64, map[string]domain.OrderFill) {
	byID := make(map[string]domain.OrderFill, len(orders))

	for attempt := 0; attempt < e.cfg.ReconcileAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return minRatio(orders, byID), byID
			case <-time.After(e.reconcile):
			}
		}

		fills, err := e.executor.PollFills(ctx, orders)
		if err != nil {
			slog.Warn("poll fills failed", "attempt", attempt+1, "error", err)
			continue
		}
		for _, f := range fills {
			byID[f.OrderID] = f
		}

		ratio := minRatio(orders, byID)
		if ratio >= e.cfg.MinFillRatio && noneOpen(byID) {
			return ratio, byID
		}
	}
	return minRatio(orders, byID), byID
}

// finish closes out the report, mutates daily counters, persists state and
// records the attempt. failed feeds the consecutive-failure budget; crossing
// it halts the whole process, not just this basket.
func (e *Engine) finish(ctx context.Context, report *domain.ExecutionReport, failed bool) {
	report.FinishedAt = time.Now()

	e.state.ExecutionsToday++
	e.state.NotionalToday += report.Notional
	if failed {
		e.state.ConsecutiveErrors++
	} else {
		e.state.ConsecutiveErrors = 0
	}

	slog.Info("execution attempt finished",
		"attempt", report.AttemptID, "outcome", string(report.Outcome),
		"min_fill_ratio", fmt.Sprintf("%.2f", report.MinFillRatio),
		"cancelled", report.Cancelled, "unwound", report.Unwound,
		"consecutive_errors", e.state.ConsecutiveErrors)

	if failed && e.state.ConsecutiveErrors >= e.cfg.MaxConsecutiveErrors {
		e.guard.Halt(ctx, fmt.Sprintf("%d consecutive execution failures", e.state.ConsecutiveErrors), report.FinishedAt)
	}

	if err := e.store.Save(ctx, *e.state); err != nil {
		slog.Warn("failed to persist runtime state", "error", err)
	}
	if e.sink != nil {
		if err := e.sink.RecordExecution(ctx, *report); err != nil {
			slog.Warn("failed to record execution", "error", err)
		}
	}
}

func minRatio(orders []domain.SubmittedOrder, fills map[string]domain.OrderFill) float64 {
	if len(orders) == 0 {
		return 0
	}
	lowest := 1.0
	for _, o := range orders {
		r := 0.0
		if f, ok := fills[o.OrderID]; ok {
			r = f.Ratio(o.Shares)
		}
		if r < lowest {
			lowest = r
		}
	}
	return lowest
}

func noneOpen(fills map[string]domain.OrderFill) bool {
	for _, f := range fills {
		if f.Open {
			return false
		}
	}
	return true
}

func filledNotional(fills map[string]domain.OrderFill) float64 {
	total := 0.0
	for _, f := range fills {
		total += f.FilledShares * f.AvgPrice
	}
	return total
}

func legByToken(b domain.EventBasket, tokenID string) (domain.Leg, bool) {
	for _, l := range b.Legs {
		if l.TokenID == tokenID {
			return l, true
		}
	}
	return domain.Leg{}, false
}
