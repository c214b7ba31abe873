package universe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/basketbot/config"
	"github.com/alejandrodnm/basketbot/internal/domain"
	"github.com/alejandrodnm/basketbot/internal/ports"
)

type fakeProvider struct {
	markets []domain.RawMarket
	query   ports.UniverseQuery
}

func (f *fakeProvider) FetchMarkets(_ context.Context, q ports.UniverseQuery) ([]domain.RawMarket, error) {
	f.query = q
	return f.markets, nil
}

func market(id, question string, liquidity, volume, hoursToEnd float64) domain.RawMarket {
	return domain.RawMarket{
		ConditionID: id,
		Question:    question,
		Active:      true,
		Liquidity:   liquidity,
		Volume24h:   volume,
		EndDate:     time.Now().Add(time.Duration(hoursToEnd * float64(time.Hour))),
		Outcomes: []domain.Outcome{
			{Label: "Yes", TokenID: id + "-0"},
			{Label: "No", TokenID: id + "-1"},
		},
	}
}

func TestBuild_AppliesClientSideFilters(t *testing.T) {
	provider := &fakeProvider{markets: []domain.RawMarket{
		market("c1", "Will Bitcoin hit 100k?", 5000, 1000, 48),
		market("c2", "Thin market", 50, 1000, 48),     // liquidez baja
		market("c3", "Quiet market", 5000, 5, 48),     // volumen bajo
		market("c4", "Ends too soon", 5000, 1000, 1),  // fuera de ventana
		market("c5", "Ends too late", 5000, 1000, 999),
	}}

	b, err := NewBuilder(provider, config.UniverseConfig{
		Mode:          "active",
		MinLiquidity:  1000,
		MinVolume24h:  100,
		MinHoursToEnd: 6,
		MaxHoursToEnd: 168,
		MaxMarkets:    100,
	})
	require.NoError(t, err)

	kept, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "c1", kept[0].ConditionID)
}

func TestBuild_TitlePattern(t *testing.T) {
	provider := &fakeProvider{markets: []domain.RawMarket{
		market("c1", "NYC high temperature on Friday", 5000, 1000, 48),
		market("c2", "Will Bitcoin hit 100k?", 5000, 1000, 48),
	}}

	b, err := NewBuilder(provider, config.UniverseConfig{TitlePattern: `(?i)temperature`})
	require.NoError(t, err)

	kept, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "c1", kept[0].ConditionID)
}

func TestBuild_InvalidTitlePatternIsConfigError(t *testing.T) {
	_, err := NewBuilder(&fakeProvider{}, config.UniverseConfig{TitlePattern: `([`})
	assert.Error(t, err)
}

func TestBuild_EmptyUniverseIsTerminal(t *testing.T) {
	provider := &fakeProvider{markets: []domain.RawMarket{
		market("c1", "whatever", 0, 0, 48),
	}}

	b, err := NewBuilder(provider, config.UniverseConfig{MinLiquidity: 1000})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestBuild_DropsClosedAndTokenlessMarkets(t *testing.T) {
	closed := market("c1", "closed market", 5000, 1000, 48)
	closed.Closed = true
	tokenless := market("c2", "tokenless market", 5000, 1000, 48)
	tokenless.Outcomes[1].TokenID = ""

	provider := &fakeProvider{markets: []domain.RawMarket{closed, tokenless}}
	b, err := NewBuilder(provider, config.UniverseConfig{})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}

func TestBuild_ForwardsQueryToProvider(t *testing.T) {
	grouped := market("c1", "q", 5000, 1000, 48)
	grouped.GroupID = "ev1"

	provider := &fakeProvider{markets: []domain.RawMarket{grouped}}
	b, err := NewBuilder(provider, config.UniverseConfig{
		Mode: "buckets", MinLiquidity: 500, MinVolume24h: 50, MaxMarkets: 7,
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "buckets", provider.query.Mode)
	assert.Equal(t, 500.0, provider.query.MinLiquidity)
	assert.Equal(t, 7, provider.query.MaxMarkets)
}

func TestBuild_BucketsModeKeepsGroupedOrMultiOutcome(t *testing.T) {
	grouped := market("c1", "BTC between 60k and 70k?", 5000, 1000, 48)
	grouped.GroupID = "ev1"

	multi := market("c2", "NYC high temperature on Friday", 5000, 1000, 48)
	multi.Outcomes = []domain.Outcome{
		{Label: "below 80", TokenID: "c2-0"},
		{Label: "80-90", TokenID: "c2-1"},
		{Label: "above 90", TokenID: "c2-2"},
	}

	loose := market("c3", "Will it rain tomorrow?", 5000, 1000, 48) // binario suelto

	provider := &fakeProvider{markets: []domain.RawMarket{grouped, multi, loose}}
	b, err := NewBuilder(provider, config.UniverseConfig{Mode: "buckets"})
	require.NoError(t, err)

	kept, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, "c1", kept[0].ConditionID)
	assert.Equal(t, "c2", kept[1].ConditionID)
}

func TestBuild_ActiveModeKeepsOnlyBinaries(t *testing.T) {
	binary := market("c1", "Will it rain tomorrow?", 5000, 1000, 48)

	multi := market("c2", "NYC high temperature on Friday", 5000, 1000, 48)
	multi.Outcomes = append(multi.Outcomes, domain.Outcome{Label: "Maybe", TokenID: "c2-2"})

	provider := &fakeProvider{markets: []domain.RawMarket{binary, multi}}
	b, err := NewBuilder(provider, config.UniverseConfig{Mode: "active"})
	require.NoError(t, err)

	kept, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "c1", kept[0].ConditionID)
}

func TestBuild_WindowModeRequiresEndDateInsideHorizon(t *testing.T) {
	inside := market("c1", "BTC up this week?", 5000, 1000, 48)
	farOut := market("c2", "BTC up this year?", 5000, 1000, 2000) // fuera del horizonte por defecto
	noDate := market("c3", "BTC up someday?", 5000, 1000, 48)
	noDate.EndDate = time.Time{}

	provider := &fakeProvider{markets: []domain.RawMarket{inside, farOut, noDate}}
	b, err := NewBuilder(provider, config.UniverseConfig{Mode: "window"})
	require.NoError(t, err)

	kept, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "c1", kept[0].ConditionID)
}

func TestNewBuilder_UnknownModeIsConfigError(t *testing.T) {
	_, err := NewBuilder(&fakeProvider{}, config.UniverseConfig{Mode: "kalshi"})
	assert.Error(t, err)
}
