package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/domain"
)

// tresBuckets construye un basket exhaustivo de 3 patas con books cuyo
// mejor ask por pata es el precio dado, con profundidad de sobra.
func tresBuckets(prices [3]float64) ([]domain.EventBasket, map[string]domain.OrderBook) {
	basket := domain.EventBasket{
		Key:      "grp-1",
		Title:    "How many inches of snow?",
		Strategy: domain.StrategyBuckets,
		Legs: []domain.Leg{
			{MarketID: "m1", Label: "<2", TokenID: "t1", Side: domain.SideYes},
			{MarketID: "m2", Label: "2-4", TokenID: "t2", Side: domain.SideYes},
			{MarketID: "m3", Label: "4+", TokenID: "t3", Side: domain.SideYes},
		},
	}
	books := map[string]domain.OrderBook{
		"t1": {TokenID: "t1", Asks: []domain.BookEntry{{Price: prices[0], Size: 100}}},
		"t2": {TokenID: "t2", Asks: []domain.BookEntry{{Price: prices[1], Size: 100}}},
		"t3": {TokenID: "t3", Asks: []domain.BookEntry{{Price: prices[2], Size: 100}}},
	}
	return []domain.EventBasket{basket}, books
}

func TestEvaluate_NegativeEdgeNotActionable(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.20, 0.30, 0.51})

	d := NewDetector(config.DetectorConfig{SharesPerLeg: 5, MinEdgeCents: 1})
	priced := PriceBaskets(baskets, books, 5)
	require.Len(t, priced, 1)

	cands := d.Evaluate(priced, time.Now())
	require.Len(t, cands, 1)

	c := cands[0]
	assert.InDelta(t, 5.05, c.BasketCost, 1e-9)
	assert.InDelta(t, 5.00, c.Payout, 1e-9)
	assert.InDelta(t, -0.05, c.GrossEdge, 1e-9)
	assert.Empty(t, d.Actionable(cands))
}

func TestEvaluate_PositiveEdgeActionable(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.10, 0.30, 0.40})

	d := NewDetector(config.DetectorConfig{SharesPerLeg: 5, MinEdgeCents: 1})
	priced := PriceBaskets(baskets, books, 5)
	require.Len(t, priced, 1)

	cands := d.Evaluate(priced, time.Now())
	require.Len(t, cands, 1)

	c := cands[0]
	assert.InDelta(t, 4.00, c.BasketCost, 1e-9)
	assert.InDelta(t, 5.00, c.Payout, 1e-9)
	assert.InDelta(t, 1.00, c.GrossEdge, 1e-9)
	assert.InDelta(t, 20.0, c.EdgePct, 1e-9)
	assert.Len(t, d.Actionable(cands), 1)
}

// Recalcular el edge desde los ladders crudos reproduce el valor reportado.
func TestEvaluate_EdgeMatchesRawRecomputation(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.12, 0.27, 0.44})
	shares := 5.0
	fee := 0.02
	fixed := 0.10

	d := NewDetector(config.DetectorConfig{
		SharesPerLeg: shares, WinnerFeeRate: fee, FixedCostUSD: fixed, MinEdgeCents: 1,
	})
	priced := PriceBaskets(baskets, books, shares)
	cands := d.Evaluate(priced, time.Now())
	require.Len(t, cands, 1)

	var legCosts float64
	for _, leg := range priced[0].Legs {
		cost, ok := domain.OrderCostForShares(books[leg.TokenID].Asks, shares)
		require.True(t, ok)
		legCosts += cost
	}
	expected := shares*(1-fee) - legCosts - fixed
	assert.InDelta(t, expected, cands[0].GrossEdge, 1e-9)
}

func TestEvaluate_SortedByEdgeDescending(t *testing.T) {
	b1, books1 := tresBuckets([3]float64{0.30, 0.30, 0.30})
	b2, books2 := tresBuckets([3]float64{0.10, 0.10, 0.10})
	b2[0].Key = "grp-2"
	b2[0].Legs[0].TokenID = "u1"
	b2[0].Legs[1].TokenID = "u2"
	b2[0].Legs[2].TokenID = "u3"

	books := books1
	books["u1"] = domain.OrderBook{TokenID: "u1", Asks: books2["t1"].Asks}
	books["u2"] = domain.OrderBook{TokenID: "u2", Asks: books2["t2"].Asks}
	books["u3"] = domain.OrderBook{TokenID: "u3", Asks: books2["t3"].Asks}

	d := NewDetector(config.DetectorConfig{SharesPerLeg: 5, MinEdgeCents: 1})
	priced := PriceBaskets(append(b1, b2...), books, 5)
	cands := d.Evaluate(priced, time.Now())
	require.Len(t, cands, 2)
	assert.Equal(t, "grp-2", cands[0].Basket.Key) // el más barato tiene más edge
	assert.Greater(t, cands[0].GrossEdge, cands[1].GrossEdge)
}

func TestPriceBaskets_DropsBasketOnThinLeg(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.10, 0.30, 0.40})
	// la pata t2 solo tiene 2 shares visibles, pedimos 5
	books["t2"] = domain.OrderBook{TokenID: "t2", Asks: []domain.BookEntry{{Price: 0.30, Size: 2}}}

	priced := PriceBaskets(baskets, books, 5)
	assert.Empty(t, priced)
}

func TestPriceBaskets_DropsBasketOnMissingBook(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.10, 0.30, 0.40})
	delete(books, "t3")

	priced := PriceBaskets(baskets, books, 5)
	assert.Empty(t, priced)
}

func TestPriceBaskets_DoesNotMutateInput(t *testing.T) {
	baskets, books := tresBuckets([3]float64{0.10, 0.30, 0.40})
	priced := PriceBaskets(baskets, books, 5)
	require.Len(t, priced, 1)

	assert.Equal(t, 0.0, baskets[0].Legs[0].AskCost)
	assert.InDelta(t, 0.50, priced[0].Legs[0].AskCost, 1e-9)
}
