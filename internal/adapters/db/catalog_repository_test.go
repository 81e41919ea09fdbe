//go:build integration
// +build integration

package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/test/helpers"
)

func TestCatalogRepository_Save(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	variant := helpers.CreateTestVariant()

	err := repo.Save(ctx, variant)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, variant.ID)

	saved, err := repo.FindBySlug(ctx, variant.Slug)
	require.NoError(t, err)
	require.NotNil(t, saved)
	helpers.CompareVariants(t, variant, saved)
}

func TestCatalogRepository_FindByID(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	variant := helpers.CreateTestVariant()
	err := repo.Save(ctx, variant)
	require.NoError(t, err)

	tests := []struct {
		name        string
		id          uuid.UUID
		expectedNil bool
	}{
		{
			name:        "finds_existing_variant",
			id:          variant.ID,
			expectedNil: false,
		},
		{
			name:        "returns_nil_for_nonexistent_variant",
			id:          uuid.New(),
			expectedNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.FindByID(ctx, tt.id)
			assert.NoError(t, err)

			if tt.expectedNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.Equal(t, tt.id, result.ID)
			}
		})
	}
}

func TestCatalogRepository_Update(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	variant := helpers.CreateTestVariant()
	err := repo.Save(ctx, variant)
	require.NoError(t, err)

	variant.Model = "Activa 125"
	variant.Price.OfferPrice = decimal.NewFromInt(89000)

	err = repo.Update(ctx, variant)
	require.NoError(t, err)

	updated, err := repo.FindByID(ctx, variant.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Activa 125", updated.Model)
	assert.True(t, decimal.NewFromInt(89000).Equal(updated.Price.OfferPrice))
}

func TestCatalogRepository_SaveBatch_UpsertsBySlug(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	variants := helpers.CreateTestVariants(5)
	err := repo.SaveBatch(ctx, variants)
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// Re-importing the same slugs must update, not duplicate
	reimport := make([]domain.VehicleVariant, len(variants))
	for i := range variants {
		reimport[i] = variants[i]
		reimport[i].ID = uuid.New()
		reimport[i].Price.ExShowroom = variants[i].Price.ExShowroom.Add(decimal.NewFromInt(1000))
	}

	err = repo.SaveBatch(ctx, reimport)
	require.NoError(t, err)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// Upsert keeps the original row's ID
	assert.Equal(t, variants[0].ID, reimport[0].ID)

	updated, err := repo.FindBySlug(ctx, variants[0].Slug)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, variants[0].Price.ExShowroom.Add(decimal.NewFromInt(1000)).Equal(updated.Price.ExShowroom))
}

func TestCatalogRepository_SoftDelete(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	variant := helpers.CreateTestVariant()
	err := repo.Save(ctx, variant)
	require.NoError(t, err)

	err = repo.SoftDelete(ctx, variant.ID)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, variant.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	exists, err := repo.Exists(ctx, variant.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCatalogRepository_DistinctMakes(t *testing.T) {
	testDB := helpers.SetupTestDB(t)
	defer testDB.Database.Close()

	repo := db.NewCatalogRepository(testDB.Database, helpers.TestLogger())
	ctx := context.Background()

	makes := []string{"HONDA", "BAJAJ", "TVS"}
	for i, m := range makes {
		for j := 0; j < 2; j++ {
			variant := helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
				v.Make = m
				v.Slug = fmt.Sprintf("%s-model-%d-%d", m, i, j)
			})
			err := repo.Save(ctx, variant)
			require.NoError(t, err)
		}
	}

	result, err := repo.DistinctMakes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BAJAJ", "HONDA", "TVS"}, result)
}
