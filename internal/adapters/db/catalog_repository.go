// internal/adapters/db/catalog_repository.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// catalogRepository implements ports.CatalogRepository
type catalogRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *Database, logger *slog.Logger) ports.CatalogRepository {
	return &catalogRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "catalog")),
	}
}

const variantColumns = `
	id, make, model, variant, slug, body_type, fuel_type, segment,
	ex_showroom, on_road, offer_price, specs, colors,
	is_active, created_at, updated_at`

// Save creates a new catalog variant
func (r *catalogRepository) Save(ctx context.Context, variant *domain.VehicleVariant) error {
	query := `
		INSERT INTO vehicle_variants (
			id, make, model, variant, slug, body_type, fuel_type, segment,
			ex_showroom, on_road, offer_price, specs, colors,
			is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16
		) RETURNING id, created_at, updated_at`

	specsJSON, colorsJSON, err := marshalVariantJSON(variant)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, query,
		variant.ID, variant.Make, variant.Model, variant.Variant, variant.Slug,
		variant.BodyType, variant.FuelType, variant.Segment,
		variant.Price.ExShowroom, variant.Price.OnRoad, variant.Price.OfferPrice,
		specsJSON, colorsJSON,
		variant.IsActive, variant.CreatedAt, variant.UpdatedAt,
	).Scan(&variant.ID, &variant.CreatedAt, &variant.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save catalog variant: %w", err)
	}

	r.logger.DebugContext(ctx, "catalog variant saved",
		slog.String("id", variant.ID.String()),
		slog.String("slug", variant.Slug))

	return nil
}

// SaveBatch upserts multiple variants in a transaction, keyed by slug so
// feed re-imports update instead of duplicating.
func (r *catalogRepository) SaveBatch(ctx context.Context, variants []domain.VehicleVariant) error {
	if len(variants) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		query := `
			INSERT INTO vehicle_variants (
				id, make, model, variant, slug, body_type, fuel_type, segment,
				ex_showroom, on_road, offer_price, specs, colors,
				is_active, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8,
				$9, $10, $11, $12, $13, $14, $15, $16
			)
			ON CONFLICT (slug) DO UPDATE SET
				make = EXCLUDED.make,
				model = EXCLUDED.model,
				variant = EXCLUDED.variant,
				body_type = EXCLUDED.body_type,
				fuel_type = EXCLUDED.fuel_type,
				segment = EXCLUDED.segment,
				ex_showroom = EXCLUDED.ex_showroom,
				on_road = EXCLUDED.on_road,
				offer_price = EXCLUDED.offer_price,
				specs = EXCLUDED.specs,
				colors = EXCLUDED.colors,
				is_active = EXCLUDED.is_active,
				updated_at = EXCLUDED.updated_at,
				deleted_at = NULL
			RETURNING id`

		for i := range variants {
			specsJSON, colorsJSON, err := marshalVariantJSON(&variants[i])
			if err != nil {
				return err
			}
			batch.Queue(query,
				variants[i].ID, variants[i].Make, variants[i].Model, variants[i].Variant, variants[i].Slug,
				variants[i].BodyType, variants[i].FuelType, variants[i].Segment,
				variants[i].Price.ExShowroom, variants[i].Price.OnRoad, variants[i].Price.OfferPrice,
				specsJSON, colorsJSON,
				variants[i].IsActive, variants[i].CreatedAt, variants[i].UpdatedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := range variants {
			if err := br.QueryRow().Scan(&variants[i].ID); err != nil {
				return fmt.Errorf("failed to upsert variant %d (%s): %w", i, variants[i].Slug, err)
			}
		}

		return nil
	})
}

// Update updates an existing variant
func (r *catalogRepository) Update(ctx context.Context, variant *domain.VehicleVariant) error {
	query := `
		UPDATE vehicle_variants SET
			make = $2, model = $3, variant = $4, slug = $5,
			body_type = $6, fuel_type = $7, segment = $8,
			ex_showroom = $9, on_road = $10, offer_price = $11,
			specs = $12, colors = $13, is_active = $14, updated_at = $15
		WHERE id = $1 AND deleted_at IS NULL`

	specsJSON, colorsJSON, err := marshalVariantJSON(variant)
	if err != nil {
		return err
	}
	variant.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		variant.ID, variant.Make, variant.Model, variant.Variant, variant.Slug,
		variant.BodyType, variant.FuelType, variant.Segment,
		variant.Price.ExShowroom, variant.Price.OnRoad, variant.Price.OfferPrice,
		specsJSON, colorsJSON, variant.IsActive, variant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update catalog variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog variant not found: %s", variant.ID)
	}

	r.logger.DebugContext(ctx, "catalog variant updated",
		slog.String("id", variant.ID.String()))

	return nil
}

// FindByID retrieves a variant by ID
func (r *catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM vehicle_variants
		WHERE id = $1 AND deleted_at IS NULL`

	variant, err := r.scanVariant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find catalog variant: %w", err)
	}
	return variant, nil
}

// FindBySlug retrieves a variant by its storefront slug
func (r *catalogRepository) FindBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM vehicle_variants
		WHERE slug = $1 AND deleted_at IS NULL`

	variant, err := r.scanVariant(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find catalog variant by slug: %w", err)
	}
	return variant, nil
}

// FindAllActive loads the full active catalog, newest first. The filter
// engine runs in memory over this set.
func (r *catalogRepository) FindAllActive(ctx context.Context) ([]domain.VehicleVariant, error) {
	query := `SELECT ` + variantColumns + `
		FROM vehicle_variants
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY make, model, variant`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var variants []domain.VehicleVariant
	for rows.Next() {
		variant, err := r.scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog variant: %w", err)
		}
		variants = append(variants, *variant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return variants, nil
}

// Delete performs a hard delete
func (r *catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicle_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog variant not found: %s", id)
	}

	r.logger.InfoContext(ctx, "catalog variant deleted",
		slog.String("id", id.String()))

	return nil
}

// SoftDelete marks a variant as deleted
func (r *catalogRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE vehicle_variants SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	now := time.Now()
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete catalog variant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog variant not found: %s", id)
	}

	r.logger.InfoContext(ctx, "catalog variant soft deleted",
		slog.String("id", id.String()))

	return nil
}

// Count returns the number of non-deleted variants
func (r *catalogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicle_variants WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count catalog variants: %w", err)
	}
	return count, nil
}

// Exists checks if a variant exists
func (r *catalogRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vehicle_variants WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// DistinctMakes returns the uppercase make universe of the active catalog
func (r *catalogRepository) DistinctMakes(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT UPPER(make)
		FROM vehicle_variants
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY 1`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query makes: %w", err)
	}
	defer rows.Close()

	var makes []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan make: %w", err)
		}
		makes = append(makes, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return makes, nil
}

func (r *catalogRepository) scanVariant(row pgx.Row) (*domain.VehicleVariant, error) {
	variant := &domain.VehicleVariant{}
	var segment sql.NullString
	var specsJSON, colorsJSON []byte

	err := row.Scan(
		&variant.ID, &variant.Make, &variant.Model, &variant.Variant, &variant.Slug,
		&variant.BodyType, &variant.FuelType, &segment,
		&variant.Price.ExShowroom, &variant.Price.OnRoad, &variant.Price.OfferPrice,
		&specsJSON, &colorsJSON,
		&variant.IsActive, &variant.CreatedAt, &variant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	variant.Segment = segment.String
	if variant.Segment == "" {
		variant.Segment = domain.DefaultSegment
	}

	if len(specsJSON) > 0 {
		if err := json.Unmarshal(specsJSON, &variant.Specs); err != nil {
			return nil, fmt.Errorf("failed to decode specs: %w", err)
		}
	}
	if len(colorsJSON) > 0 {
		if err := json.Unmarshal(colorsJSON, &variant.Colors); err != nil {
			return nil, fmt.Errorf("failed to decode colors: %w", err)
		}
	}

	return variant, nil
}

func marshalVariantJSON(variant *domain.VehicleVariant) (specs, colors []byte, err error) {
	specs, err = json.Marshal(variant.Specs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode specs: %w", err)
	}
	colors, err = json.Marshal(variant.Colors)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode colors: %w", err)
	}
	return specs, colors, nil
}
