package redis_a_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/test/helpers"
)

func newTestCache(t *testing.T) (ports.CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redis_a.NewCache(client, 5*time.Minute, helpers.TestLogger()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	t.Run("round_trips_string", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "rt:string", "hero splendor plus"))

		var got string
		require.NoError(t, cache.Get(ctx, "rt:string", &got))
		assert.Equal(t, "hero splendor plus", got)
	})

	t.Run("round_trips_struct_as_json", func(t *testing.T) {
		variant := struct {
			Slug  string `json:"slug"`
			Price int64  `json:"price"`
		}{Slug: "honda-activa-6g-std", Price: 7899900}
		require.NoError(t, cache.Set(ctx, "rt:struct", variant))

		var raw json.RawMessage
		require.NoError(t, cache.Get(ctx, "rt:struct", &raw))
		assert.JSONEq(t, `{"slug":"honda-activa-6g-std","price":7899900}`, string(raw))
	})

	t.Run("round_trips_slice", func(t *testing.T) {
		colors := []string{"matte black", "pearl white", "red"}
		require.NoError(t, cache.Set(ctx, "rt:slice", colors))

		var got []string
		require.NoError(t, cache.Get(ctx, "rt:slice", &got))
		assert.Equal(t, colors, got)
	})

	t.Run("missing_key_is_cache_miss", func(t *testing.T) {
		var got string
		err := cache.Get(ctx, "rt:absent", &got)
		assert.ErrorIs(t, err, redis_a.ErrCacheMiss)
	})
}

func TestCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	require.NoError(t, cache.SetWithTTL(ctx, "ttl:test", "value", 100*time.Millisecond))

	var got string
	require.NoError(t, cache.Get(ctx, "ttl:test", &got))
	assert.Equal(t, "value", got)

	mr.FastForward(200 * time.Millisecond)

	err := cache.Get(ctx, "ttl:test", &got)
	assert.ErrorIs(t, err, redis_a.ErrCacheMiss)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	keys := []string{"del:1", "del:2", "del:3"}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.Delete(ctx, keys...))

	for _, key := range keys {
		var got string
		assert.ErrorIs(t, cache.Get(ctx, key, &got), redis_a.ErrCacheMiss)
	}

	// Deleting nothing is a no-op, not an error.
	require.NoError(t, cache.Delete(ctx))
}

func TestCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	doomed := []string{"catalog:tenant-a:p1", "catalog:tenant-a:p2"}
	kept := []string{"catalog:tenant-b:p1", "stock:unit-42"}
	for _, key := range append(append([]string{}, doomed...), kept...) {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.DeletePattern(ctx, "catalog:tenant-a:*"))

	var got string
	for _, key := range doomed {
		assert.ErrorIs(t, cache.Get(ctx, key, &got), redis_a.ErrCacheMiss, "expected %s gone", key)
	}
	for _, key := range kept {
		require.NoError(t, cache.Get(ctx, key, &got), "expected %s to survive", key)
	}

	// A pattern matching nothing succeeds quietly.
	require.NoError(t, cache.DeletePattern(ctx, "absent:*"))
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return "fetched value", nil
	}

	var first string
	require.NoError(t, cache.GetOrSet(ctx, "getorset:test", &first, fetch, time.Minute))
	assert.Equal(t, "fetched value", first)
	assert.Equal(t, 1, fetches)

	var second string
	require.NoError(t, cache.GetOrSet(ctx, "getorset:test", &second, fetch, time.Minute))
	assert.Equal(t, "fetched value", second)
	assert.Equal(t, 1, fetches, "second read must come from cache")
}

func TestCache_Counters(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	val, err := cache.Increment(ctx, "counter:imports")
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = cache.Increment(ctx, "counter:imports")
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	val, err = cache.IncrementBy(ctx, "counter:imports", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), val)

	val, err = cache.IncrementBy(ctx, "counter:imports", -2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), val)
}

func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	ok, err := cache.SetNX(ctx, "lock:feed:tenant-a", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, "lock:feed:tenant-a", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	var got string
	require.NoError(t, cache.Get(ctx, "lock:feed:tenant-a", &got))
	assert.Equal(t, "first", got, "losing writer must not overwrite the lock")
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{
			name:     "catalog_key",
			prefix:   redis_a.PrefixCatalog,
			parts:    []string{"honda-activa", "detail"},
			expected: "catalog:honda-activa:detail",
		},
		{
			name:     "dashboard_key",
			prefix:   redis_a.PrefixDashboard,
			parts:    []string{"summary", "2024"},
			expected: "dash:summary:2024",
		},
		{
			name:     "single_part",
			prefix:   redis_a.PrefixSearch,
			parts:    []string{"query"},
			expected: "search:query",
		},
		{
			name:     "no_parts",
			prefix:   redis_a.PrefixPrefs,
			parts:    []string{},
			expected: "prefs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redis_a.BuildKey(tt.prefix, tt.parts...))
		})
	}
}
