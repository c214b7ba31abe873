package ports

import (
	"context"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// BasketExecutor is the single capability set shared by both execution
// backends (direct CLOB and the hosted broker). Backend selection returns
// exactly one implementation, or none in observe mode.
type BasketExecutor interface {
	// Name identifies the backend in logs and execution reports.
	Name() string

	// SubmitBasket places one order per leg and returns the acknowledged
	// orders. A partial submit returns the orders that did go through
	// together with the error.
	SubmitBasket(ctx context.Context, basket domain.EventBasket, shares float64) ([]domain.SubmittedOrder, error)

	// PollFills returns current fill progress for the given orders.
	PollFills(ctx context.Context, orders []domain.SubmittedOrder) ([]domain.OrderFill, error)

	// Cancel cancels one still-open order.
	Cancel(ctx context.Context, orderID string) error

	// Unwind market-sells an already-filled leg to avoid a naked position.
	Unwind(ctx context.Context, leg domain.Leg, shares float64) error
}

// PortfolioProvider reads the total portfolio PnL used by the risk guard.
type PortfolioProvider interface {
	PortfolioValue(ctx context.Context) (float64, error)
}
