package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelfm/spindle/pkg/cache"
	"github.com/kestrelfm/spindle/pkg/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetThenGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	tracks := []track.Track{{URI: "a", Title: "A"}}
	require.NoError(t, c.Set(ctx, "key1", tracks, time.Minute))

	got, ok, err := c.TryGet(ctx, "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tracks, got)
}

func TestMemoryCache_MissReturnsFalseNotError(t *testing.T) {
	c := cache.NewMemoryCache()
	_, ok, err := c.TryGet(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []track.Track{{URI: "a"}}, -time.Second))

	_, ok, err := c.TryGet(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_SweepRemovesExpiredEntries(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "expired", []track.Track{{URI: "a"}}, -time.Second))
	require.NoError(t, c.Set(ctx, "fresh", []track.Track{{URI: "b"}}, time.Minute))

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, ok, _ := c.TryGet(ctx, "fresh")
	assert.True(t, ok)
}
