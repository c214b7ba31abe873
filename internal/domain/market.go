package domain

import "time"

// RawMarket es un mercado crudo tal como lo devuelve el endpoint de metadata,
// antes de agruparse en baskets.
type RawMarket struct {
	ConditionID string
	Question    string
	Slug        string
	GroupID     string // event id / neg-risk group; vacío si el mercado va suelto
	GroupTitle  string
	Outcomes    []Outcome
	EndDate     time.Time
	Liquidity   float64
	Volume24h   float64
	Active      bool
	Closed      bool
}

// Outcome es un resultado comprable del mercado con su token id.
type Outcome struct {
	Label   string
	TokenID string
}

// HoursToEnd devuelve las horas hasta la resolución del mercado.
// Devuelve 0 si EndDate no está definido o ya pasó.
func (m RawMarket) HoursToEnd() float64 {
	if m.EndDate.IsZero() {
		return 0
	}
	h := time.Until(m.EndDate).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Tradeable devuelve true si el mercado está activo y tiene tokens en todos
// sus outcomes.
func (m RawMarket) Tradeable() bool {
	if !m.Active || m.Closed || len(m.Outcomes) == 0 {
		return false
	}
	for _, o := range m.Outcomes {
		if o.TokenID == "" {
			return false
		}
	}
	return true
}
