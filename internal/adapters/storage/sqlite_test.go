package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/basketbot/internal/domain"
)

func testEventLog(t *testing.T) *SQLiteEventLog {
	t.Helper()
	log, err := NewSQLiteEventLog(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func candidateFixture(key string, edge float64, at time.Time) domain.Candidate {
	return domain.Candidate{
		Basket: domain.EventBasket{
			Key:      key,
			Title:    "test basket",
			Strategy: domain.StrategyBuckets,
			Legs:     []domain.Leg{{MarketID: "m1", TokenID: "t1"}},
		},
		BasketCost: 4.0,
		Payout:     5.0,
		GrossEdge:  edge,
		EdgePct:    edge / 5.0 * 100,
		PricedAt:   at,
	}
}

func TestEventLog_CandidateUpsertKeepsPeakEdge(t *testing.T) {
	log := testEventLog(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, log.RecordCandidates(ctx, []domain.Candidate{candidateFixture("grp-1", 1.00, now)}))
	require.NoError(t, log.RecordCandidates(ctx, []domain.Candidate{candidateFixture("grp-1", 0.25, now.Add(time.Minute))}))

	var rows int
	var gross, peak float64
	err := log.db.QueryRow(`SELECT COUNT(*), gross_edge, peak_edge FROM candidates WHERE basket_key = 'grp-1'`).
		Scan(&rows, &gross, &peak)
	require.NoError(t, err)

	assert.Equal(t, 1, rows) // upsert, no filas duplicadas
	assert.InDelta(t, 0.25, gross, 1e-9)
	assert.InDelta(t, 1.00, peak, 1e-9) // el pico no retrocede
}

func TestEventLog_RecordExecution(t *testing.T) {
	log := testEventLog(t)
	now := time.Now()

	report := domain.ExecutionReport{
		AttemptID:    "att-1",
		BasketKey:    "grp-1",
		BasketTitle:  "test basket",
		Backend:      "clob",
		Outcome:      domain.ExecutionPartial,
		Shares:       5,
		Notional:     2.75,
		MinFillRatio: 0.40,
		Unwound:      2,
		Cancelled:    1,
		Error:        "min fill ratio 0.40 below threshold 0.98",
		StartedAt:    now,
		FinishedAt:   now.Add(30 * time.Second),
	}
	require.NoError(t, log.RecordExecution(context.Background(), report))

	var outcome string
	var unwound int
	err := log.db.QueryRow(`SELECT outcome, unwound FROM executions WHERE attempt_id = 'att-1'`).
		Scan(&outcome, &unwound)
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", outcome)
	assert.Equal(t, 2, unwound)
}

func TestEventLog_RecordHalt(t *testing.T) {
	log := testEventLog(t)

	require.NoError(t, log.RecordHalt(context.Background(), "Daily loss guard: drawdown $10.00 >= limit $5.00", time.Now()))

	var count int
	require.NoError(t, log.db.QueryRow(`SELECT COUNT(*) FROM halts`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestEventLog_EmptyCandidateBatchIsNoop(t *testing.T) {
	log := testEventLog(t)
	assert.NoError(t, log.RecordCandidates(context.Background(), nil))
}
