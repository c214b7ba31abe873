package notify

import (
	"bytes"
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

func candidate(title string, edge float64) domain.Candidate {
	return domain.Candidate{
		Basket: domain.EventBasket{
			Key:      "grp-" + title,
			Title:    title,
			Strategy: domain.StrategyYesNo,
			Legs:     []domain.Leg{{TokenID: "t1"}, {TokenID: "t2"}},
		},
		BasketCost: 5.0 - edge,
		Payout:     5.0,
		GrossEdge:  edge,
		EdgePct:    edge / 5.0 * 100,
		PricedAt:   time.Now(),
	}
}

func TestNotify_CompactMarksActionable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false, 10) // umbral 10c

	cands := []domain.Candidate{
		candidate("Bitcoin above 70k?", 0.50),
		candidate("Rain tomorrow?", 0.02),
	}
	require.NoError(t, c.Notify(context.Background(), cands))

	out := buf.String()
	assert.Contains(t, out, "2 baskets, 1 actionable")
	assert.Contains(t, out, "*Bitcoin above 70k?")
	assert.Contains(t, out, " Rain tomorrow?")
}

func TestNotify_CompactCapsAtThreeBaskets(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false, 10)

	cands := []domain.Candidate{
		candidate("uno", 0.50),
		candidate("dos", 0.40),
		candidate("tres", 0.30),
		candidate("cuatro", 0.20),
	}
	require.NoError(t, c.Notify(context.Background(), cands))

	out := buf.String()
	assert.Contains(t, out, "tres")
	assert.NotContains(t, out, "cuatro")
}

func TestNotify_TableModeRendersAllRows(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true, 10)

	cands := []domain.Candidate{
		candidate("Bitcoin above 70k?", 0.50),
		candidate("Rain tomorrow?", 0.02),
	}
	require.NoError(t, c.Notify(context.Background(), cands))

	out := buf.String()
	assert.Contains(t, out, "Bitcoin above 70k?")
	assert.Contains(t, out, "Rain tomorrow?")
	assert.Contains(t, out, "YES") // columna actionable
}

func TestNotify_EmptyTickPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false, 10)

	require.NoError(t, c.Notify(context.Background(), nil))
	assert.Zero(t, buf.Len())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "un titulo l...", truncate("un titulo largo de verdad", 14))
}

func TestTruncate_CutsOnRuneBoundaries(t *testing.T) {
	title := "¿Temperatura máxima en Nueva York el viernes: 85°F o más?"

	got := truncate(title, 28)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "¿Temperatura máxima en Nu...", got)

	// Un corte justo sobre una runa multi-byte tampoco la parte.
	got = truncate("85°F al cierre del viernes en Central Park", 6)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "85°...", got)
}
