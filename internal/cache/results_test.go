package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/Lamont-Labs/QuantraVision-sub001/internal/testing"
)

type entry struct {
	Pattern string    `json:"pattern"`
	Rates   []float64 `json:"rates"`
	Best    *int      `json:"best,omitempty"`
}

func newTestResults(t *testing.T, ttl time.Duration) *Results {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	c := NewResults(db.Conn(), ttl, zerolog.New(nil).Level(zerolog.Disabled))
	c.now = testingpkg.Clock(testingpkg.FixedNow)
	return c
}

func TestResults_SetGet(t *testing.T) {
	c := newTestResults(t, time.Minute)
	ctx := context.Background()
	best := 14

	require.NoError(t, c.Set(ctx, "temporal:Flag", entry{Pattern: "Flag", Rates: []float64{0.5, 0.75}, Best: &best}))

	var got entry
	ok, err := c.Get(ctx, "temporal:Flag", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Flag", got.Pattern)
	assert.Equal(t, []float64{0.5, 0.75}, got.Rates)
	require.NotNil(t, got.Best)
	assert.Equal(t, 14, *got.Best)

	ok, err = c.Get(ctx, "temporal:Missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResults_Overwrite(t *testing.T) {
	c := newTestResults(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Pattern: "A"}))
	require.NoError(t, c.Set(ctx, "k", entry{Pattern: "B"}))

	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", got.Pattern)
}

func TestResults_Expiry(t *testing.T) {
	c := newTestResults(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", entry{Pattern: "A"}))

	c.now = testingpkg.Clock(testingpkg.FixedNow.Add(time.Minute))
	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	purged, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestResults_DeleteByPrefix(t *testing.T) {
	c := newTestResults(t, time.Minute)
	ctx := context.Background()
	for _, key := range []string{"forecast:A", "forecast:B", "portfolio:5"} {
		require.NoError(t, c.Set(ctx, key, entry{Pattern: key}))
	}

	require.NoError(t, c.DeleteByPrefix(ctx, "forecast:"))
	require.NoError(t, c.Delete(ctx, "absent"))

	var got entry
	ok, _ := c.Get(ctx, "forecast:A", &got)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "portfolio:5", &got)
	assert.True(t, ok)

	require.NoError(t, c.DeleteByPrefix(ctx, ""))
	ok, _ = c.Get(ctx, "portfolio:5", &got)
	assert.False(t, ok)
}

func TestResults_Disabled(t *testing.T) {
	c := newTestResults(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Pattern: "A"}))
	var got entry
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Enabled())
}
