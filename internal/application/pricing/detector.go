package pricing

import (
	"sort"
	"time"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/domain"
)

// Detector calcula el edge de cada basket priceado y rankea los candidates.
type Detector struct {
	cfg config.DetectorConfig
}

// NewDetector crea el detector con los parámetros de edge configurados.
func NewDetector(cfg config.DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Evaluate convierte baskets priceados en candidates ordenados por edge
// bruto descendente. Toda la aritmética es float64 en USD.
//
//	basket_cost = Σ leg.AskCost
//	payout      = shares × (1 − winner_fee_rate)
//	gross_edge  = payout − basket_cost − fixed_cost
func (d *Detector) Evaluate(priced []domain.EventBasket, now time.Time) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(priced))

	for _, b := range priced {
		cost := 0.0
		for _, l := range b.Legs {
			cost += l.AskCost
		}
		payout := d.cfg.SharesPerLeg * (1 - d.cfg.WinnerFeeRate)
		edge := payout - cost - d.cfg.FixedCostUSD

		edgePct := 0.0
		if payout > 0 {
			edgePct = edge / payout * 100
		}

		candidates = append(candidates, domain.Candidate{
			Basket:     b,
			BasketCost: cost,
			Payout:     payout,
			GrossEdge:  edge,
			EdgePct:    edgePct,
			PricedAt:   now,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].GrossEdge > candidates[j].GrossEdge
	})
	return candidates
}

// Actionable filtra los candidates que superan el umbral configurado.
func (d *Detector) Actionable(candidates []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0)
	for _, c := range candidates {
		if c.Actionable(d.cfg.MinEdgeCents) {
			out = append(out, c)
		}
	}
	return out
}

// MinEdgeCents expone el umbral para el notifier.
func (d *Detector) MinEdgeCents() float64 { return d.cfg.MinEdgeCents }
