// Package pricing convierte baskets agrupados en candidates: pricea cada
// pata recorriendo el lado ask del book y calcula el edge neto.
package pricing

import (
	"log/slog"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

// PriceBaskets pricea cada basket contra los books dados. Un basket solo
// queda priceado si TODAS sus patas tienen book fresco y profundidad
// suficiente; si falta cualquiera, el basket entero se descarta para este
// tick. Devuelve copias: los baskets de entrada no se mutan.
func PriceBaskets(baskets []domain.EventBasket, books map[string]domain.OrderBook, sharesPerLeg float64) []domain.EventBasket {
	priced := make([]domain.EventBasket, 0, len(baskets))

	for _, b := range baskets {
		legs := make([]domain.Leg, len(b.Legs))
		copy(legs, b.Legs)

		ok := true
		for i := range legs {
			book, has := books[legs[i].TokenID]
			if !has {
				ok = false
				break
			}
			cost, enough := domain.OrderCostForShares(book.Asks, sharesPerLeg)
			if !enough {
				slog.Debug("leg dropped, insufficient ask depth",
					"basket", b.Key, "token", legs[i].TokenID, "shares", sharesPerLeg)
				ok = false
				break
			}
			legs[i].AskCost = cost
		}
		if !ok {
			continue
		}

		b.Legs = legs
		priced = append(priced, b)
	}
	return priced
}
