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

func TestFileStateStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStateStore(path)
	ctx := context.Background()

	baseline := 123.45
	checked := time.Now().Truncate(time.Second)
	state := domain.RuntimeState{
		Day:               "2026-08-28",
		ExecutionsToday:   3,
		NotionalToday:     42.50,
		Halted:            true,
		HaltReason:        "Daily loss guard: drawdown $10.00 >= limit $5.00",
		StartPnLTotal:     &baseline,
		LastPnLCheck:      &checked,
		ConsecutiveErrors: 2,
	}

	require.NoError(t, store.Save(ctx, state))

	loaded, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, state.Day, loaded.Day)
	assert.Equal(t, state.ExecutionsToday, loaded.ExecutionsToday)
	assert.Equal(t, state.NotionalToday, loaded.NotionalToday)
	assert.Equal(t, state.Halted, loaded.Halted)
	assert.Equal(t, state.HaltReason, loaded.HaltReason)
	require.NotNil(t, loaded.StartPnLTotal)
	assert.Equal(t, baseline, *loaded.StartPnLTotal)
	require.NotNil(t, loaded.LastPnLCheck)
	assert.True(t, checked.Equal(*loaded.LastPnLCheck))
	assert.Equal(t, state.ConsecutiveErrors, loaded.ConsecutiveErrors)
}

func TestFileStateStore_MissingFileIsNotAnError(t *testing.T) {
	store := NewFileStateStore(filepath.Join(t.TempDir(), "nope.json"))

	state, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, domain.RuntimeState{}, state)
}

func TestFileStateStore_OverwriteKeepsLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStateStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.RuntimeState{Day: "2026-08-27", ExecutionsToday: 1}))
	require.NoError(t, store.Save(ctx, domain.RuntimeState{Day: "2026-08-28", ExecutionsToday: 0}))

	loaded, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2026-08-28", loaded.Day)
	assert.Zero(t, loaded.ExecutionsToday)
}

func TestFileStateStore_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	store := NewFileStateStore(path)

	require.NoError(t, store.Save(context.Background(), domain.RuntimeState{Day: "2026-08-28"}))
	_, found, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
}
