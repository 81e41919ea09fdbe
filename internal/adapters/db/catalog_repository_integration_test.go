//go:build integration
// +build integration

package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/test/helpers"
)

type CatalogRepositorySuite struct {
	suite.Suite
	testDB *helpers.TestDB
	repo   ports.CatalogRepository
	ctx    context.Context
}

func (s *CatalogRepositorySuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.repo = db.NewCatalogRepository(s.testDB.Database, helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *CatalogRepositorySuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
}

func (s *CatalogRepositorySuite) TestSave() {
	variant := helpers.CreateTestVariant()

	err := s.repo.Save(s.ctx, variant)
	s.NoError(err)
	s.NotEqual(uuid.Nil, variant.ID)

	saved, err := s.repo.FindByID(s.ctx, variant.ID)
	s.NoError(err)
	s.Require().NotNil(saved)
	s.Equal(variant.Slug, saved.Slug)
	s.Equal(variant.BodyType, saved.BodyType)
	s.True(variant.Price.ExShowroom.Equal(saved.Price.ExShowroom))
	s.Equal(variant.Specs.DisplacementCC, saved.Specs.DisplacementCC)
	s.Len(saved.Colors, len(variant.Colors))
}

func (s *CatalogRepositorySuite) TestSaveBatch() {
	variants := helpers.CreateTestVariants(3)

	err := s.repo.SaveBatch(s.ctx, variants)
	s.NoError(err)

	count, err := s.repo.Count(s.ctx)
	s.NoError(err)
	s.Equal(int64(3), count)

	// Same slugs again with new prices must update in place
	for i := range variants {
		variants[i].ID = uuid.New()
		variants[i].Price.OnRoad = variants[i].Price.OnRoad.Add(decimal.NewFromInt(500))
	}
	err = s.repo.SaveBatch(s.ctx, variants)
	s.NoError(err)

	count, err = s.repo.Count(s.ctx)
	s.NoError(err)
	s.Equal(int64(3), count)
}

func (s *CatalogRepositorySuite) TestSaveBatch_RevivesSoftDeleted() {
	variant := helpers.CreateTestVariant()
	err := s.repo.Save(s.ctx, variant)
	s.NoError(err)

	err = s.repo.SoftDelete(s.ctx, variant.ID)
	s.NoError(err)

	err = s.repo.SaveBatch(s.ctx, []domain.VehicleVariant{*variant})
	s.NoError(err)

	revived, err := s.repo.FindBySlug(s.ctx, variant.Slug)
	s.NoError(err)
	s.NotNil(revived)
}

func (s *CatalogRepositorySuite) TestFindAllActive() {
	active := helpers.CreateTestVariants(4)
	err := s.repo.SaveBatch(s.ctx, active)
	s.NoError(err)

	inactive := helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
		v.Slug = "inactive-variant"
		v.IsActive = false
	})
	err = s.repo.Save(s.ctx, inactive)
	s.NoError(err)

	deleted := helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
		v.Slug = "deleted-variant"
	})
	err = s.repo.Save(s.ctx, deleted)
	s.NoError(err)
	err = s.repo.SoftDelete(s.ctx, deleted.ID)
	s.NoError(err)

	variants, err := s.repo.FindAllActive(s.ctx)
	s.NoError(err)
	s.Len(variants, 4)
	for _, v := range variants {
		s.True(v.IsActive)
		s.NotEqual("deleted-variant", v.Slug)
	}
}

func (s *CatalogRepositorySuite) TestDistinctMakes() {
	for i, m := range []string{"TVS", "HONDA", "HONDA", "BAJAJ"} {
		variant := helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = m
			v.Slug = fmt.Sprintf("%s-%d", m, i)
		})
		err := s.repo.Save(s.ctx, variant)
		s.NoError(err)
	}

	makes, err := s.repo.DistinctMakes(s.ctx)
	s.NoError(err)
	s.Equal([]string{"BAJAJ", "HONDA", "TVS"}, makes)
}

func (s *CatalogRepositorySuite) TestConcurrentSaves() {
	done := make(chan error, 10)

	for i := 0; i < 10; i++ {
		go func(idx int) {
			variant := helpers.CreateTestVariant(func(v *domain.VehicleVariant) {
				v.Slug = fmt.Sprintf("concurrent-variant-%d", idx)
			})
			done <- s.repo.Save(context.Background(), variant)
		}(i)
	}

	for i := 0; i < 10; i++ {
		s.NoError(<-done)
	}

	count, err := s.repo.Count(s.ctx)
	s.NoError(err)
	s.Equal(int64(10), count)
}

func TestCatalogRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(CatalogRepositorySuite))
}
