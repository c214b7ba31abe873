package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/adapters/storage"
	"github.com/alejandrodnm/basketbot/internal/application/pricing"
	"github.com/alejandrodnm/basketbot/internal/application/risk"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

// scriptedFeed replays a fixed frame sequence, then times out forever.
type scriptedFeed struct {
	subscribed []string
	frames     [][]ports.BookUpdate
	err        error // returned after the frames run out, instead of timeouts
	next       int
	closed     bool
}

func (f *scriptedFeed) Subscribe(_ context.Context, tokenIDs []string) error {
	f.subscribed = tokenIDs
	return nil
}

func (f *scriptedFeed) Next(timeout time.Duration) ([]ports.BookUpdate, error) {
	if f.next < len(f.frames) {
		frame := f.frames[f.next]
		f.next++
		return frame, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	// keep the test loop from spinning while it waits out the deadline
	sleep := 5 * time.Millisecond
	if timeout < sleep {
		sleep = timeout
	}
	time.Sleep(sleep)
	return nil, ports.ErrFeedTimeout
}

func (f *scriptedFeed) Close() error {
	f.closed = true
	return nil
}

type recordingSink struct {
	candidateBatches [][]domain.Candidate
}

func (s *recordingSink) RecordCandidates(_ context.Context, cands []domain.Candidate) error {
	s.candidateBatches = append(s.candidateBatches, cands)
	return nil
}
func (s *recordingSink) RecordExecution(context.Context, domain.ExecutionReport) error { return nil }
func (s *recordingSink) RecordHalt(context.Context, string, time.Time) error           { return nil }
func (s *recordingSink) Close() error                                                  { return nil }

func snapshot(tokenID string, askPrice, askSize float64) ports.BookUpdate {
	return ports.BookUpdate{
		TokenID: tokenID,
		Snapshot: &domain.OrderBook{
			TokenID:    tokenID,
			Asks:       []domain.BookEntry{{Price: askPrice, Size: askSize}},
			CapturedAt: time.Now(),
		},
	}
}

func yesNoBasket() domain.EventBasket {
	return domain.EventBasket{
		Key:      "grp-1",
		Title:    "Will it rain tomorrow?",
		Strategy: domain.StrategyYesNo,
		Legs: []domain.Leg{
			{MarketID: "m1", Label: "Yes", TokenID: "yes-tok", Side: domain.SideYes},
			{MarketID: "m1", Label: "No", TokenID: "no-tok", Side: domain.SideNo},
		},
	}
}

func newLoop(t *testing.T, opts Options, baskets []domain.EventBasket, feed ports.MarketFeed, sink ports.EventSink) *Loop {
	t.Helper()
	state := domain.NewRuntimeState(time.Now())
	store := storage.NewMemStateStore()
	guard := risk.NewGuard(config.RiskConfig{}, time.Minute, nil, store, sink, &state)
	detector := pricing.NewDetector(config.DetectorConfig{SharesPerLeg: 5, MinEdgeCents: 1})
	return New(opts, baskets, feed, detector, guard, nil, store, sink, nil, nil, &state)
}

func TestLoop_DetectsEdgeFromSnapshots(t *testing.T) {
	// YES a 0.40 + NO a 0.40 con payout 5 → edge 1.00
	feed := &scriptedFeed{frames: [][]ports.BookUpdate{
		{snapshot("yes-tok", 0.40, 100)},
		{snapshot("no-tok", 0.40, 100)},
	}}
	sink := &recordingSink{}

	loop := newLoop(t, Options{
		RunDuration:     100 * time.Millisecond,
		Debounce:        0,
		SummaryInterval: time.Hour,
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket()}, feed, sink)

	require.NoError(t, loop.Run(context.Background()))
	assert.True(t, feed.closed)
	assert.ElementsMatch(t, []string{"yes-tok", "no-tok"}, feed.subscribed)

	require.NotEmpty(t, sink.candidateBatches)
	best := sink.candidateBatches[0][0]
	assert.Equal(t, "grp-1", best.Basket.Key)
	assert.InDelta(t, 1.00, best.GrossEdge, 1e-9)
}

func TestLoop_IncompleteBooksProduceNothing(t *testing.T) {
	// solo llega el snapshot de una pata: el basket nunca se pricea entero
	feed := &scriptedFeed{frames: [][]ports.BookUpdate{
		{snapshot("yes-tok", 0.40, 100)},
	}}
	sink := &recordingSink{}

	loop := newLoop(t, Options{
		RunDuration:     60 * time.Millisecond,
		SummaryInterval: time.Hour,
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket()}, feed, sink)

	require.NoError(t, loop.Run(context.Background()))
	assert.Empty(t, sink.candidateBatches)
}

func TestLoop_DebounceSuppressesReEvaluation(t *testing.T) {
	feed := &scriptedFeed{frames: [][]ports.BookUpdate{
		{snapshot("yes-tok", 0.40, 100), snapshot("no-tok", 0.40, 100)},
		{snapshot("yes-tok", 0.35, 100)}, // llega dentro de la ventana de debounce
	}}
	sink := &recordingSink{}

	loop := newLoop(t, Options{
		RunDuration:     80 * time.Millisecond,
		Debounce:        time.Hour,
		SummaryInterval: time.Hour,
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket()}, feed, sink)

	require.NoError(t, loop.Run(context.Background()))
	assert.Len(t, sink.candidateBatches, 1)
}

func TestLoop_DeltasUpdateExistingBook(t *testing.T) {
	feed := &scriptedFeed{frames: [][]ports.BookUpdate{
		{snapshot("yes-tok", 0.60, 100), snapshot("no-tok", 0.60, 100)}, // sin edge
		{{TokenID: "yes-tok", Deltas: []ports.LevelChange{
			{Side: domain.BookAsk, Price: 0.20, Size: 50}, // aparece un ask barato
		}}},
	}}
	sink := &recordingSink{}

	loop := newLoop(t, Options{
		RunDuration:     80 * time.Millisecond,
		Debounce:        0,
		SummaryInterval: time.Hour,
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket()}, feed, sink)

	require.NoError(t, loop.Run(context.Background()))

	// primer tick: 0.60+0.60 → sin edge; segundo: 0.20+0.60 → edge 1.00
	require.Len(t, sink.candidateBatches, 1)
	assert.InDelta(t, 1.00, sink.candidateBatches[0][0].GrossEdge, 1e-9)
}

func TestLoop_FeedErrorIsUnrecoverable(t *testing.T) {
	feed := &scriptedFeed{err: errors.New("connection reset")}
	sink := &recordingSink{}

	loop := newLoop(t, Options{
		RunDuration:     time.Hour,
		SummaryInterval: time.Hour,
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket()}, feed, sink)

	err := loop.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrFeedTimeout)
}

func TestLoop_PrunesBasketsPastTokenCap(t *testing.T) {
	b2 := yesNoBasket()
	b2.Key = "grp-2"
	b2.Legs[0].TokenID = "yes-2"
	b2.Legs[1].TokenID = "no-2"

	feed := &scriptedFeed{}
	loop := newLoop(t, Options{
		RunDuration:     30 * time.Millisecond,
		SummaryInterval: time.Hour,
		MaxTokens:       2, // solo cabe el primer basket
		SharesPerLeg:    5,
	}, []domain.EventBasket{yesNoBasket(), b2}, feed, &recordingSink{})

	require.NoError(t, loop.Run(context.Background()))
	assert.ElementsMatch(t, []string{"yes-tok", "no-tok"}, feed.subscribed)
}
