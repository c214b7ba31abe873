package domain

import "time"

// SubmittedOrder is one leg order acknowledged by an execution backend.
type SubmittedOrder struct {
	LocalID  string // UUID assigned before submit
	OrderID  string // backend order id
	TokenID  string
	MarketID string
	Shares   float64
	Price    float64 // limit price sent (top-of-walk ask)
	PlacedAt time.Time
}

// OrderFill is the fill progress of one submitted order as reported by the
// backend during reconciliation.
type OrderFill struct {
	OrderID      string
	FilledShares float64
	AvgPrice     float64
	Open         bool // still resting on the book
}

// Ratio returns the fill ratio against the requested size.
func (f OrderFill) Ratio(requested float64) float64 {
	if requested <= 0 {
		return 0
	}
	r := f.FilledShares / requested
	if r > 1 {
		r = 1
	}
	return r
}

// ExecutionOutcome classifies how a basket attempt ended.
type ExecutionOutcome string

const (
	ExecutionFilled   ExecutionOutcome = "FILLED"
	ExecutionPartial  ExecutionOutcome = "PARTIAL"   // below threshold, cancelled/unwound
	ExecutionRejected ExecutionOutcome = "REJECTED"  // submit failed
)

// ExecutionReport is the durable record of one basket execution attempt.
type ExecutionReport struct {
	AttemptID    string
	BasketKey    string
	BasketTitle  string
	Backend      string
	Outcome      ExecutionOutcome
	Shares       float64
	Notional     float64 // Σ leg cost actually committed
	MinFillRatio float64 // minimum across legs at reconciliation end
	Unwound      int     // legs market-unwound after partial failure
	Cancelled    int     // still-open orders cancelled
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}
