package domain

import "time"

// Candidate es el resultado efímero de pricear un basket en un tick.
// Vive solo dentro de la evaluación: nunca se persiste tal cual.
type Candidate struct {
	Basket     EventBasket
	BasketCost float64 // Σ leg.AskCost
	Payout     float64 // shares × (1 − winnerFeeRate)
	GrossEdge  float64 // Payout − BasketCost − fixedCost
	EdgePct    float64 // GrossEdge / Payout, en porcentaje
	PricedAt   time.Time
}

// Actionable devuelve true si el edge bruto supera el umbral en céntimos.
func (c Candidate) Actionable(minEdgeCents float64) bool {
	return c.GrossEdge >= minEdgeCents/100
}
