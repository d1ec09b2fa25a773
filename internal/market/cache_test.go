package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheDropsExpiredEntryOnGet(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Quote{Symbol: "NOPE", Mock: true}, time.Minute))
	_, ok, err := cache.Get(ctx, "NOPE")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheIsBounded(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Quote{Symbol: "FIRST"}, time.Minute))
	for i := 0; i < maxMemoryQuotes*2; i++ {
		require.NoError(t, cache.Set(ctx, Quote{Symbol: fmt.Sprintf("SYM%d", i)}, time.Hour))
	}
	assert.Equal(t, maxMemoryQuotes, cache.Len())

	_, ok, _ := cache.Get(ctx, "FIRST")
	assert.False(t, ok, "entry closest to expiry is evicted first")
	_, ok, _ = cache.Get(ctx, fmt.Sprintf("SYM%d", maxMemoryQuotes*2-1))
	assert.True(t, ok)
}
