package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/test/helpers"
)

func TestPreferenceStore_StoreAndLoad(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redis_a.NewPreferenceStore(client, time.Hour, helpers.TestLogger())

	prefs := &ports.FilterPreferences{
		Makes:       []string{"HONDA", "TVS"},
		FuelTags:    []string{"PETROL"},
		MaxEMI:      decimal.NewFromInt(3000),
		Downpayment: decimal.NewFromInt(15000),
	}

	require.NoError(t, store.Store(ctx, "session-1", prefs))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, prefs.Makes, loaded.Makes)
	assert.True(t, loaded.MaxEMI.Equal(decimal.NewFromInt(3000)))
	assert.True(t, loaded.Downpayment.Equal(decimal.NewFromInt(15000)))
}

func TestPreferenceStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redis_a.NewPreferenceStore(client, time.Hour, helpers.TestLogger())

	loaded, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing session yields nil, not an error")
}

func TestPreferenceStore_Remove(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redis_a.NewPreferenceStore(client, time.Hour, helpers.TestLogger())

	require.NoError(t, store.Store(ctx, "session-1", &ports.FilterPreferences{Search: "activa"}))
	require.NoError(t, store.Remove(ctx, "session-1"))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPreferenceStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redis_a.NewPreferenceStore(client, 100*time.Millisecond, helpers.TestLogger())

	require.NoError(t, store.Store(ctx, "session-1", &ports.FilterPreferences{Search: "activa"}))

	mr.FastForward(200 * time.Millisecond)

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPreferenceStore_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := redis_a.NewPreferenceStore(client, time.Hour, helpers.TestLogger())

	events, err := store.Subscribe(ctx, "session-1")
	require.NoError(t, err)

	prefs := &ports.FilterPreferences{Makes: []string{"BAJAJ"}}
	require.NoError(t, store.Publish(ctx, "session-1", prefs))

	select {
	case got := <-events:
		require.NotNil(t, got)
		assert.Equal(t, []string{"BAJAJ"}, got.Makes)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for preference event")
	}
}
