package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("store then fetch", func(t *testing.T) {
		c := NewMemoryCache(DefaultMemoryCacheConfig())
		require.NoError(t, c.Store(ctx, "k", []byte("v"), time.Minute))

		value, ok, err := c.Fetch(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), value)
		assert.Equal(t, int64(1), c.Stats().Hits)
	})

	t.Run("miss is counted", func(t *testing.T) {
		c := NewMemoryCache(DefaultMemoryCacheConfig())
		_, ok, err := c.Fetch(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(1), c.Stats().Misses)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		c := NewMemoryCache(DefaultMemoryCacheConfig())
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		require.NoError(t, c.Store(ctx, "k", []byte("v"), time.Minute))
		now = now.Add(2 * time.Minute)

		_, ok, err := c.Fetch(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, c.Stats().Size)
	})

	t.Run("zero ttl is not stored", func(t *testing.T) {
		c := NewMemoryCache(DefaultMemoryCacheConfig())
		require.NoError(t, c.Store(ctx, "k", []byte("v"), 0))
		assert.Equal(t, 0, c.Stats().Size)
	})

	t.Run("size stays bounded", func(t *testing.T) {
		c := NewMemoryCache(MemoryCacheConfig{MaxSize: 4})
		for i := 0; i < 10; i++ {
			require.NoError(t, c.Store(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
		}
		assert.LessOrEqual(t, c.Stats().Size, 4)

		_, ok, _ := c.Fetch(ctx, "k9")
		assert.True(t, ok, "most recent entry survives eviction")
	})
}

func TestKey(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	assert.Equal(t, "provider:+15551234567:1704067200:1704153600", Key("+15551234567", start, end))
}
