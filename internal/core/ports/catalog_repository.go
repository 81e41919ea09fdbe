// internal/core/ports/catalog_repository.go
package ports

import (
	"context"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/google/uuid"
)

// CatalogRepository defines the persistence port for the vehicle catalog.
// This interface is implemented by the database adapter.
type CatalogRepository interface {
	Save(ctx context.Context, variant *domain.VehicleVariant) error
	SaveBatch(ctx context.Context, variants []domain.VehicleVariant) error
	Update(ctx context.Context, variant *domain.VehicleVariant) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error)
	FindBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error)
	// FindAllActive loads the full active catalog for in-memory filtering.
	FindAllActive(ctx context.Context) ([]domain.VehicleVariant, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	DistinctMakes(ctx context.Context) ([]string, error)
}
