// internal/core/services/catalog_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/internal/core/services"
	"github.com/bookmybike/marketplace-be/test/helpers"
	"github.com/bookmybike/marketplace-be/test/mocks"
)

func testFinance() services.FinanceOptions {
	return services.FinanceOptions{
		FlatMonthlyRate:    decimal.RequireFromString("0.035"),
		DefaultDownpayment: decimal.Zero,
		DefaultTenure:      36,
	}
}

func newCatalogService(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository) *services.CatalogService {
	return services.NewCatalogService(repo, cache, testFinance(), helpers.TestLogger())
}

func TestCatalogService_SaveVariant(t *testing.T) {
	tests := []struct {
		name       string
		variant    *domain.VehicleVariant
		setupMocks func(*mocks.MockCatalogRepository, *mocks.MockCacheRepository)
		wantErr    bool
		errMsg     string
	}{
		{
			name:    "successful_save",
			variant: helpers.CreateTestVariant(),
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository) {
				repo.On("Save", mock.Anything, mock.Anything).Return(nil)
				cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "validation_failure",
			variant: helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
				v.Make = ""
			}),
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository) {},
			wantErr:    true,
			errMsg:     "validation failed",
		},
		{
			name:    "repository_error",
			variant: helpers.CreateTestVariant(),
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository) {
				repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
			wantErr: true,
			errMsg:  "failed to save variant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCatalogRepository)
			cache := new(mocks.MockCacheRepository)
			tt.setupMocks(repo, cache)

			svc := newCatalogService(repo, cache)
			err := svc.SaveVariant(context.Background(), tt.variant)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_SaveVariants(t *testing.T) {
	t.Run("empty_batch_is_noop", func(t *testing.T) {
		repo := new(mocks.MockCatalogRepository)
		svc := newCatalogService(repo, nil)

		err := svc.SaveVariants(context.Background(), nil)

		require.NoError(t, err)
		repo.AssertNotCalled(t, "SaveBatch")
	})

	t.Run("validates_all_before_saving", func(t *testing.T) {
		repo := new(mocks.MockCatalogRepository)
		svc := newCatalogService(repo, nil)

		variants := helpers.CreateTestVariants(3)
		variants[2].Make = ""

		err := svc.SaveVariants(context.Background(), variants)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
		repo.AssertNotCalled(t, "SaveBatch")
	})

	t.Run("saves_batch", func(t *testing.T) {
		repo := new(mocks.MockCatalogRepository)
		cache := new(mocks.MockCacheRepository)
		repo.On("SaveBatch", mock.Anything, mock.Anything).Return(nil)
		cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)
		svc := newCatalogService(repo, cache)

		err := svc.SaveVariants(context.Background(), helpers.CreateTestVariants(5))

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestCatalogService_BulkUpsert(t *testing.T) {
	repo := new(mocks.MockCatalogRepository)
	cache := new(mocks.MockCacheRepository)
	cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)

	// 250 variants should land in three batches of 100, 100 and 50.
	var batchSizes []int
	repo.On("SaveBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		batchSizes = append(batchSizes, len(args.Get(1).([]domain.VehicleVariant)))
	}).Return(nil)

	svc := newCatalogService(repo, cache)
	err := svc.BulkUpsert(context.Background(), helpers.CreateTestVariants(250))

	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, batchSizes)
}

func TestCatalogService_GetByID(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*mocks.MockCatalogRepository, uuid.UUID)
		wantErr    bool
		errMsg     string
	}{
		{
			name: "found",
			setupMocks: func(repo *mocks.MockCatalogRepository, id uuid.UUID) {
				repo.On("FindByID", mock.Anything, id).
					Return(helpers.CreateTestVariant(func(v *domain.VehicleVariant) { v.ID = id }), nil)
			},
			wantErr: false,
		},
		{
			name: "not_found",
			setupMocks: func(repo *mocks.MockCatalogRepository, id uuid.UUID) {
				repo.On("FindByID", mock.Anything, id).Return(nil, nil)
			},
			wantErr: true,
			errMsg:  "not found",
		},
		{
			name: "repository_error",
			setupMocks: func(repo *mocks.MockCatalogRepository, id uuid.UUID) {
				repo.On("FindByID", mock.Anything, id).Return(nil, errors.New("db down"))
			},
			wantErr: true,
			errMsg:  "failed to get variant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCatalogRepository)
			id := uuid.New()
			tt.setupMocks(repo, id)

			svc := newCatalogService(repo, nil)
			variant, err := svc.GetByID(context.Background(), id)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, variant)
			} else {
				require.NoError(t, err)
				require.NotNil(t, variant)
				assert.Equal(t, id, variant.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_DeleteVariant(t *testing.T) {
	tests := []struct {
		name       string
		permanent  bool
		setupMocks func(*mocks.MockCatalogRepository, *mocks.MockCacheRepository, uuid.UUID)
		wantErr    bool
		errMsg     string
	}{
		{
			name:      "soft_delete_by_default",
			permanent: false,
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository, id uuid.UUID) {
				repo.On("Exists", mock.Anything, id).Return(true, nil)
				repo.On("SoftDelete", mock.Anything, id).Return(nil)
				cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:      "permanent_delete",
			permanent: true,
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository, id uuid.UUID) {
				repo.On("Exists", mock.Anything, id).Return(true, nil)
				repo.On("Delete", mock.Anything, id).Return(nil)
				cache.On("DeletePattern", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:      "missing_variant",
			permanent: false,
			setupMocks: func(repo *mocks.MockCatalogRepository, cache *mocks.MockCacheRepository, id uuid.UUID) {
				repo.On("Exists", mock.Anything, id).Return(false, nil)
			},
			wantErr: true,
			errMsg:  "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCatalogRepository)
			cache := new(mocks.MockCacheRepository)
			id := uuid.New()
			tt.setupMocks(repo, cache, id)

			svc := newCatalogService(repo, cache)
			err := svc.DeleteVariant(context.Background(), id, tt.permanent)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func browseCatalog() []domain.VehicleVariant {
	return []domain.VehicleVariant{
		*helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = "HONDA"
			v.Model = "Activa"
			v.BodyType = domain.BodyScooter
			v.Price = domain.Price{OnRoad: decimal.NewFromInt(92000)}
		}),
		*helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = "HONDA"
			v.Model = "Shine"
			v.BodyType = domain.BodyMotorcycle
			v.Price = domain.Price{OnRoad: decimal.NewFromInt(82000)}
		}),
		*helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = "BAJAJ"
			v.Model = "Chetak"
			v.BodyType = domain.BodyScooter
			v.FuelType = domain.FuelEV
			v.Price = domain.Price{OnRoad: decimal.NewFromInt(125000)}
		}),
		*helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = "HONDA"
			v.Model = "Helmet"
			v.BodyType = domain.BodyAccessory
			v.Price = domain.Price{OnRoad: decimal.NewFromInt(1500)}
		}),
	}
}

func TestCatalogService_Browse(t *testing.T) {
	tests := []struct {
		name       string
		params     ports.BrowseParams
		wantModels []string
		wantTotal  int64
		wantPages  int
	}{
		{
			name:       "no_filters_returns_vehicles_only",
			params:     ports.BrowseParams{},
			wantModels: []string{"Activa", "Shine", "Chetak"},
			wantTotal:  3,
			wantPages:  1,
		},
		{
			name:       "make_filter_is_case_insensitive",
			params:     ports.BrowseParams{Makes: []string{"honda"}},
			wantModels: []string{"Activa", "Shine"},
			wantTotal:  2,
			wantPages:  1,
		},
		{
			name:       "all_makes_selected_means_unfiltered",
			params:     ports.BrowseParams{Makes: []string{"HONDA", "BAJAJ"}},
			wantModels: []string{"Activa", "Shine", "Chetak"},
			wantTotal:  3,
			wantPages:  1,
		},
		{
			name:       "fuel_tag_filter",
			params:     ports.BrowseParams{FuelTags: []string{"electric"}},
			wantModels: []string{"Chetak"},
			wantTotal:  1,
			wantPages:  1,
		},
		{
			name:       "explicit_accessory_filter",
			params:     ports.BrowseParams{BodyTypes: []string{"ACCESSORY"}},
			wantModels: []string{"Helmet"},
			wantTotal:  1,
			wantPages:  1,
		},
		{
			name:       "max_price_ceiling",
			params:     ports.BrowseParams{MaxPrice: decimal.NewFromInt(90000)},
			wantModels: []string{"Shine"},
			wantTotal:  1,
			wantPages:  1,
		},
		{
			name:       "pagination_second_page",
			params:     ports.BrowseParams{Page: 2, PageSize: 2},
			wantModels: []string{"Chetak"},
			wantTotal:  3,
			wantPages:  2,
		},
		{
			name:       "page_past_end_is_empty",
			params:     ports.BrowseParams{Page: 9, PageSize: 2},
			wantModels: []string{},
			wantTotal:  3,
			wantPages:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockCatalogRepository)
			repo.On("FindAllActive", mock.Anything).Return(browseCatalog(), nil)

			svc := newCatalogService(repo, nil)
			result, err := svc.Browse(context.Background(), tt.params)

			require.NoError(t, err)
			require.NotNil(t, result)

			models := make([]string, 0, len(result.Items))
			for _, v := range result.Items {
				models = append(models, v.Model)
			}
			assert.Equal(t, tt.wantModels, models)
			assert.Equal(t, tt.wantTotal, result.TotalCount)
			assert.Equal(t, tt.wantPages, result.TotalPages)
			assert.Equal(t, []string{"BAJAJ", "HONDA"}, result.AvailableMakes)
		})
	}
}

func TestCatalogService_Browse_EMICeiling(t *testing.T) {
	// 92000 on-road at the 3.5% flat monthly rate is a 3220 EMI with no
	// downpayment; a 15000 downpayment brings it to 2695.
	repo := new(mocks.MockCatalogRepository)
	repo.On("FindAllActive", mock.Anything).Return([]domain.VehicleVariant{
		*helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Model = "Activa"
			v.Price = domain.Price{OnRoad: decimal.NewFromInt(92000)}
		}),
	}, nil)

	svc := newCatalogService(repo, nil)

	result, err := svc.Browse(context.Background(), ports.BrowseParams{
		MaxEMI: decimal.NewFromInt(3000),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	result, err = svc.Browse(context.Background(), ports.BrowseParams{
		MaxEMI:      decimal.NewFromInt(3000),
		Downpayment: decimal.NewFromInt(15000),
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestCatalogService_Browse_RepositoryError(t *testing.T) {
	repo := new(mocks.MockCatalogRepository)
	repo.On("FindAllActive", mock.Anything).Return(nil, errors.New("db down"))

	svc := newCatalogService(repo, nil)
	result, err := svc.Browse(context.Background(), ports.BrowseParams{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalog")
	assert.Nil(t, result)
}
