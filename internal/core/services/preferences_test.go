// internal/core/services/preferences_test.go
package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/internal/core/services"
	"github.com/bookmybike/marketplace-be/test/helpers"
	"github.com/bookmybike/marketplace-be/test/mocks"
)

func testPrefs() *ports.FilterPreferences {
	return &ports.FilterPreferences{
		Makes:       []string{"HONDA"},
		FuelTags:    []string{"PETROL"},
		MaxEMI:      decimal.NewFromInt(3000),
		Downpayment: decimal.NewFromInt(15000),
	}
}

func TestPreferenceService_Get(t *testing.T) {
	t.Run("loads_from_store", func(t *testing.T) {
		store := new(mocks.MockPreferenceStore)
		store.On("Load", mock.Anything, "sess-1").Return(testPrefs(), nil)

		svc := services.NewPreferenceService(store, 10*time.Millisecond, helpers.TestLogger())
		defer svc.Close()

		prefs, err := svc.Get(context.Background(), "sess-1")

		require.NoError(t, err)
		assert.Equal(t, []string{"HONDA"}, prefs.Makes)
	})

	t.Run("missing_session_returns_empty_state", func(t *testing.T) {
		store := new(mocks.MockPreferenceStore)
		store.On("Load", mock.Anything, "sess-1").Return(nil, nil)

		svc := services.NewPreferenceService(store, 10*time.Millisecond, helpers.TestLogger())
		defer svc.Close()

		prefs, err := svc.Get(context.Background(), "sess-1")

		require.NoError(t, err)
		require.NotNil(t, prefs)
		assert.Empty(t, prefs.Makes)
	})

	t.Run("store_error", func(t *testing.T) {
		store := new(mocks.MockPreferenceStore)
		store.On("Load", mock.Anything, "sess-1").Return(nil, errors.New("redis down"))

		svc := services.NewPreferenceService(store, 10*time.Millisecond, helpers.TestLogger())
		defer svc.Close()

		_, err := svc.Get(context.Background(), "sess-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load preferences")
	})
}

func TestPreferenceService_Save_RequiresSession(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	svc := services.NewPreferenceService(store, 10*time.Millisecond, helpers.TestLogger())
	defer svc.Close()

	err := svc.Save(context.Background(), "", testPrefs())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session id is required")
}

func TestPreferenceService_Save_DebouncesWrites(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	var writes atomic.Int32
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(nil)
	store.On("Store", mock.Anything, "sess-1", mock.Anything).Run(func(mock.Arguments) {
		writes.Add(1)
	}).Return(nil)

	svc := services.NewPreferenceService(store, 30*time.Millisecond, helpers.TestLogger())
	defer svc.Close()

	// A burst of saves, like a slider being dragged.
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Save(context.Background(), "sess-1", testPrefs()))
	}

	assert.Eventually(t, func() bool {
		return writes.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// No second write sneaks in after settling.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), writes.Load())
}

func TestPreferenceService_Save_PersistsLatestState(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	var stored atomic.Pointer[ports.FilterPreferences]
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(nil)
	store.On("Store", mock.Anything, "sess-1", mock.Anything).Run(func(args mock.Arguments) {
		stored.Store(args.Get(2).(*ports.FilterPreferences))
	}).Return(nil)

	svc := services.NewPreferenceService(store, 20*time.Millisecond, helpers.TestLogger())
	defer svc.Close()

	first := testPrefs()
	second := testPrefs()
	second.MaxEMI = decimal.NewFromInt(2500)

	require.NoError(t, svc.Save(context.Background(), "sess-1", first))
	require.NoError(t, svc.Save(context.Background(), "sess-1", second))

	require.Eventually(t, func() bool {
		return stored.Load() != nil
	}, time.Second, 10*time.Millisecond)
	assert.True(t, stored.Load().MaxEMI.Equal(decimal.NewFromInt(2500)))
}

func TestPreferenceService_Save_PendingStateWinsOverStore(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(nil)
	store.On("Store", mock.Anything, "sess-1", mock.Anything).Return(nil)

	// Long settle so the write is still pending during the read.
	svc := services.NewPreferenceService(store, time.Minute, helpers.TestLogger())
	defer svc.Close()

	prefs := testPrefs()
	require.NoError(t, svc.Save(context.Background(), "sess-1", prefs))

	got, err := svc.Get(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, prefs, got)
	store.AssertNotCalled(t, "Load")
}

func TestPreferenceService_Save_BroadcastsImmediately(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(nil)
	store.On("Store", mock.Anything, "sess-1", mock.Anything).Return(nil)

	svc := services.NewPreferenceService(store, time.Minute, helpers.TestLogger())
	defer svc.Close()

	require.NoError(t, svc.Save(context.Background(), "sess-1", testPrefs()))

	// Published before the settle window elapses.
	store.AssertCalled(t, "Publish", mock.Anything, "sess-1", mock.Anything)
}

func TestPreferenceService_Save_BroadcastFailureIsNotFatal(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(errors.New("redis down"))
	store.On("Store", mock.Anything, "sess-1", mock.Anything).Return(nil)

	svc := services.NewPreferenceService(store, 10*time.Millisecond, helpers.TestLogger())
	defer svc.Close()

	err := svc.Save(context.Background(), "sess-1", testPrefs())

	require.NoError(t, err)
}

func TestPreferenceService_Clear(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	store.On("Publish", mock.Anything, "sess-1", mock.Anything).Return(nil)
	store.On("Remove", mock.Anything, "sess-1").Return(nil)
	store.On("Load", mock.Anything, "sess-1").Return(nil, nil)

	svc := services.NewPreferenceService(store, time.Minute, helpers.TestLogger())
	defer svc.Close()

	require.NoError(t, svc.Save(context.Background(), "sess-1", testPrefs()))
	require.NoError(t, svc.Clear(context.Background(), "sess-1"))

	// The buffered save is gone with the debounced write cancelled.
	prefs, err := svc.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, prefs.Makes)
	store.AssertNotCalled(t, "Store")
}

func TestPreferenceService_Close_FlushesPendingWrites(t *testing.T) {
	store := new(mocks.MockPreferenceStore)
	var writes atomic.Int32
	store.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("Store", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		writes.Add(1)
	}).Return(nil)

	svc := services.NewPreferenceService(store, time.Minute, helpers.TestLogger())

	require.NoError(t, svc.Save(context.Background(), "sess-1", testPrefs()))
	require.NoError(t, svc.Save(context.Background(), "sess-2", testPrefs()))

	svc.Close()

	assert.Equal(t, int32(2), writes.Load())
}
