package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gammaFixture() gammaMarket {
	return gammaMarket{
		ConditionID:  "0xcond",
		Question:     "Will Bitcoin close above $70k?",
		Slug:         "btc-70k",
		EndDateISO:   "2026-12-31T12:00:00Z",
		Liquidity:    json.Number("15000.5"),
		Volume24h:    json.Number("2300"),
		Outcomes:     `["Yes","No"]`,
		ClobTokenIDs: `["tok-yes","tok-no"]`,
		Active:       true,
		Events:       []gammaEvent{{ID: "ev1", Title: "Bitcoin EOY"}},
	}
}

func TestMapGammaMarket_Valid(t *testing.T) {
	m, ok := mapGammaMarket(gammaFixture())
	require.True(t, ok)

	assert.Equal(t, "0xcond", m.ConditionID)
	assert.Equal(t, "ev1", m.GroupID)
	assert.Equal(t, "Bitcoin EOY", m.GroupTitle)
	assert.Equal(t, 15000.5, m.Liquidity)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Yes", m.Outcomes[0].Label)
	assert.Equal(t, "tok-yes", m.Outcomes[0].TokenID)
	assert.Equal(t, 2026, m.EndDate.Year())
}

func TestMapGammaMarket_NegRiskGroupWins(t *testing.T) {
	gm := gammaFixture()
	gm.NegRiskMarketID = "0xnegrisk"

	m, ok := mapGammaMarket(gm)
	require.True(t, ok)
	assert.Equal(t, "0xnegrisk", m.GroupID)
}

func TestMapGammaMarket_ShapeFailuresExcludeMarket(t *testing.T) {
	malformed := gammaFixture()
	malformed.Outcomes = `not json`
	_, ok := mapGammaMarket(malformed)
	assert.False(t, ok)

	mismatched := gammaFixture()
	mismatched.ClobTokenIDs = `["solo-uno"]`
	_, ok = mapGammaMarket(mismatched)
	assert.False(t, ok)

	emptyToken := gammaFixture()
	emptyToken.ClobTokenIDs = `["tok-yes",""]`
	_, ok = mapGammaMarket(emptyToken)
	assert.False(t, ok)
}

func TestMapGammaMarket_DateOnlyFormat(t *testing.T) {
	gm := gammaFixture()
	gm.EndDateISO = "2026-11-05"

	m, ok := mapGammaMarket(gm)
	require.True(t, ok)
	assert.Equal(t, time.November, m.EndDate.Month())
}

func TestMapEntries_SortsAndFiltersGarbage(t *testing.T) {
	raw := []bookEntryRaw{
		{Price: "0.55", Size: "10"},
		{Price: "0.40", Size: "5"},
		{Price: "0", Size: "3"},      // precio cero fuera
		{Price: "0.30", Size: "-1"},  // tamaño negativo fuera
		{Price: "bogus", Size: "2"},  // no parseable fuera
	}

	asks := mapEntries(raw, false)
	require.Len(t, asks, 2)
	assert.Equal(t, 0.40, asks[0].Price) // ascendente

	bids := mapEntries(raw, true)
	assert.Equal(t, 0.55, bids[0].Price) // descendente
}

func TestParseFrame_BookSnapshot(t *testing.T) {
	raw := []byte(`[{
		"event_type": "book",
		"asset_id": "tok-1",
		"bids": [{"price": "0.48", "size": "30"}],
		"asks": [{"price": "0.52", "size": "25"}, {"price": "0.51", "size": "10"}]
	}]`)

	updates, err := parseFrame(raw)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Snapshot)
	assert.Equal(t, "tok-1", updates[0].TokenID)
	assert.Equal(t, 0.51, updates[0].Snapshot.BestAsk())
}

func TestParseFrame_PriceChangeDeltas(t *testing.T) {
	raw := []byte(`{
		"event_type": "price_change",
		"asset_id": "tok-1",
		"changes": [
			{"price": "0.52", "side": "SELL", "size": "0"},
			{"price": "0.50", "side": "BUY", "size": "12"}
		]
	}`)

	updates, err := parseFrame(raw)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].Snapshot)
	require.Len(t, updates[0].Deltas, 2)
	assert.Equal(t, 0.0, updates[0].Deltas[0].Size) // size 0 = nivel eliminado
}

func TestParseFrame_NonJSONIgnored(t *testing.T) {
	updates, err := parseFrame([]byte("PONG"))
	assert.NoError(t, err)
	assert.Empty(t, updates)
}
