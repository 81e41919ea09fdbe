// test/mocks/mocks.go

// Package mocks contains hand-written testify mocks for the
// application's ports. Keep method signatures in sync with the
// interfaces under internal/core/ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// MockCatalogRepository mocks ports.CatalogRepository.
type MockCatalogRepository struct {
	mock.Mock
}

var _ ports.CatalogRepository = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) Save(ctx context.Context, variant *domain.VehicleVariant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockCatalogRepository) SaveBatch(ctx context.Context, variants []domain.VehicleVariant) error {
	args := m.Called(ctx, variants)
	return args.Error(0)
}

func (m *MockCatalogRepository) Update(ctx context.Context, variant *domain.VehicleVariant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockCatalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.VehicleVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogRepository) FindBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error) {
	args := m.Called(ctx, slug)
	if v := args.Get(0); v != nil {
		return v.(*domain.VehicleVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogRepository) FindAllActive(ctx context.Context) ([]domain.VehicleVariant, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]domain.VehicleVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) DistinctMakes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockStockRepository mocks ports.StockRepository.
type MockStockRepository struct {
	mock.Mock
}

var _ ports.StockRepository = (*MockStockRepository)(nil)

func (m *MockStockRepository) Save(ctx context.Context, unit *domain.StockUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockStockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.StockUnit, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.StockUnit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockRepository) FindByDealership(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error) {
	args := m.Called(ctx, dealershipID, status)
	if v := args.Get(0); v != nil {
		return v.([]domain.StockUnit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockRepository) Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*domain.StockUnit, *domain.LedgerEntry, error) {
	args := m.Called(ctx, unitID, to, refID)
	var unit *domain.StockUnit
	var entry *domain.LedgerEntry
	if v := args.Get(0); v != nil {
		unit = v.(*domain.StockUnit)
	}
	if v := args.Get(1); v != nil {
		entry = v.(*domain.LedgerEntry)
	}
	return unit, entry, args.Error(2)
}

func (m *MockStockRepository) Ledger(ctx context.Context, unitID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, unitID, limit)
	if v := args.Get(0); v != nil {
		return v.([]domain.LedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockRepository) RecentLedger(ctx context.Context, since time.Time, limit int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, since, limit)
	if v := args.Get(0); v != nil {
		return v.([]domain.LedgerEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockRepository) CountByStatus(ctx context.Context, dealershipID uuid.UUID) (map[domain.StockStatus]int64, error) {
	args := m.Called(ctx, dealershipID)
	if v := args.Get(0); v != nil {
		return v.(map[domain.StockStatus]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPreferenceStore mocks ports.PreferenceStore.
type MockPreferenceStore struct {
	mock.Mock
}

var _ ports.PreferenceStore = (*MockPreferenceStore)(nil)

func (m *MockPreferenceStore) Load(ctx context.Context, sessionID string) (*ports.FilterPreferences, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*ports.FilterPreferences), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPreferenceStore) Store(ctx context.Context, sessionID string, prefs *ports.FilterPreferences) error {
	args := m.Called(ctx, sessionID, prefs)
	return args.Error(0)
}

func (m *MockPreferenceStore) Remove(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockPreferenceStore) Publish(ctx context.Context, sessionID string, prefs *ports.FilterPreferences) error {
	args := m.Called(ctx, sessionID, prefs)
	return args.Error(0)
}

func (m *MockPreferenceStore) Subscribe(ctx context.Context, sessionID string) (<-chan *ports.FilterPreferences, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(chan *ports.FilterPreferences), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSoldNotifier mocks services.SoldNotifier.
type MockSoldNotifier struct {
	mock.Mock
}

func (m *MockSoldNotifier) NotifySold(ctx context.Context, unit *domain.StockUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

// MockCacheRepository mocks ports.CacheRepository.
type MockCacheRepository struct {
	mock.Mock
}

var _ ports.CacheRepository = (*MockCacheRepository)(nil)

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCacheRepository) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, keys ...string) (bool, error) {
	args := m.Called(ctx, keys)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) GetOrSet(ctx context.Context, key string, dest interface{}, fetch func() (interface{}, error), ttl time.Duration) error {
	args := m.Called(ctx, key, dest, fetch, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) IncrementBy(ctx context.Context, key string, value int64) (int64, error) {
	args := m.Called(ctx, key, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) TTL(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockCacheRepository) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCatalogService mocks ports.CatalogService for handler tests.
type MockCatalogService struct {
	mock.Mock
}

var _ ports.CatalogService = (*MockCatalogService)(nil)

func (m *MockCatalogService) SaveVariant(ctx context.Context, variant *domain.VehicleVariant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockCatalogService) SaveVariants(ctx context.Context, variants []domain.VehicleVariant) error {
	args := m.Called(ctx, variants)
	return args.Error(0)
}

func (m *MockCatalogService) BulkUpsert(ctx context.Context, variants []domain.VehicleVariant) error {
	args := m.Called(ctx, variants)
	return args.Error(0)
}

func (m *MockCatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.VehicleVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) GetBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error) {
	args := m.Called(ctx, slug)
	if v := args.Get(0); v != nil {
		return v.(*domain.VehicleVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) UpdateVariant(ctx context.Context, id uuid.UUID, variant *domain.VehicleVariant) error {
	args := m.Called(ctx, id, variant)
	return args.Error(0)
}

func (m *MockCatalogService) DeleteVariant(ctx context.Context, id uuid.UUID, permanent bool) error {
	args := m.Called(ctx, id, permanent)
	return args.Error(0)
}

func (m *MockCatalogService) Browse(ctx context.Context, params ports.BrowseParams) (*ports.BrowseResult, error) {
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.(*ports.BrowseResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockStockService mocks ports.StockService for handler tests.
type MockStockService struct {
	mock.Mock
}

var _ ports.StockService = (*MockStockService)(nil)

func (m *MockStockService) Inward(ctx context.Context, unit *domain.StockUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockStockService) Get(ctx context.Context, unitID uuid.UUID) (*ports.StockUnitDetail, error) {
	args := m.Called(ctx, unitID)
	if v := args.Get(0); v != nil {
		return v.(*ports.StockUnitDetail), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockService) List(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error) {
	args := m.Called(ctx, dealershipID, status)
	if v := args.Get(0); v != nil {
		return v.([]domain.StockUnit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStockService) Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*ports.StockUnitDetail, error) {
	args := m.Called(ctx, unitID, to, refID)
	if v := args.Get(0); v != nil {
		return v.(*ports.StockUnitDetail), args.Error(1)
	}
	return nil, args.Error(1)
}
