package polymarket

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// mapGammaMarket convierte un DTO de Gamma a domain.RawMarket.
// Devuelve (cero, false) si el mercado no tiene outcomes/tokens parseables:
// un fallo de forma excluye el mercado, nunca rompe el fetch.
func mapGammaMarket(gm gammaMarket) (domain.RawMarket, bool) {
	var labels []string
	if err := json.Unmarshal([]byte(gm.Outcomes), &labels); err != nil {
		return domain.RawMarket{}, false
	}
	var tokenIDs []string
	if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokenIDs); err != nil {
		return domain.RawMarket{}, false
	}
	if len(labels) == 0 || len(labels) != len(tokenIDs) {
		return domain.RawMarket{}, false
	}

	outcomes := make([]domain.Outcome, len(labels))
	for i := range labels {
		if tokenIDs[i] == "" {
			return domain.RawMarket{}, false
		}
		outcomes[i] = domain.Outcome{Label: labels[i], TokenID: tokenIDs[i]}
	}

	m := domain.RawMarket{
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		Slug:        gm.Slug,
		Outcomes:    outcomes,
		Liquidity:   jsonNum(gm.Liquidity),
		Volume24h:   jsonNum(gm.Volume24h),
		Active:      gm.Active,
		Closed:      gm.Closed,
	}

	// El grupo explícito manda: negRiskMarketID para sets de buckets,
	// si no el evento padre de Gamma.
	switch {
	case gm.NegRiskMarketID != "":
		m.GroupID = gm.NegRiskMarketID
	case len(gm.Events) > 0:
		m.GroupID = gm.Events[0].ID
	}
	if len(gm.Events) > 0 {
		m.GroupTitle = gm.Events[0].Title
	}

	if gm.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, gm.EndDateISO); err == nil {
			m.EndDate = t
		} else if t, err := time.Parse("2006-01-02", gm.EndDateISO); err == nil {
			m.EndDate = t
		}
	}

	return m, true
}

// mapOrderBooks convierte la respuesta batch de /books a domain.
func mapOrderBooks(resp []orderBookResponse, capturedAt time.Time) map[string]domain.OrderBook {
	books := make(map[string]domain.OrderBook, len(resp))
	for _, r := range resp {
		if r.AssetID == "" {
			continue
		}
		books[r.AssetID] = domain.OrderBook{
			TokenID:    r.AssetID,
			Bids:       mapEntries(r.Bids, true),
			Asks:       mapEntries(r.Asks, false),
			CapturedAt: capturedAt,
		}
	}
	return books
}

// mapEntries convierte niveles raw y los deja ordenados: bids de mayor a
// menor, asks de menor a mayor. La API los manda ordenados al revés en
// algunos snapshots, así que se reordena siempre.
func mapEntries(raw []bookEntryRaw, descending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, e := range raw {
		price := domain.ParsePrice(e.Price)
		size := domain.ParsePrice(e.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}
	sort.Slice(entries, func(i, j int) bool {
		if descending {
			return entries[i].Price > entries[j].Price
		}
		return entries[i].Price < entries[j].Price
	})
	return entries
}

func jsonNum(n json.Number) float64 {
	v, _ := n.Float64()
	return v
}
