// internal/core/services/catalog.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// FinanceOptions carries the tenant's financing assumptions into EMI
// derivation during browsing.
type FinanceOptions struct {
	FlatMonthlyRate    decimal.Decimal
	DefaultDownpayment decimal.Decimal
	DefaultTenure      int
}

// CatalogService handles catalog business logic. Browsing loads the
// active catalog and runs the facet filter in memory; facet semantics
// live in the domain layer, this service only orchestrates.
type CatalogService struct {
	repo    ports.CatalogRepository
	cache   ports.CacheRepository
	finance FinanceOptions
	logger  *slog.Logger
}

// Statically assert that *CatalogService implements the CatalogService interface.
var _ ports.CatalogService = (*CatalogService)(nil)

// NewCatalogService creates a new catalog service
func NewCatalogService(repo ports.CatalogRepository, cache ports.CacheRepository, finance FinanceOptions, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:    repo,
		cache:   cache,
		finance: finance,
		logger:  logger.With(slog.String("service", "catalog")),
	}
}

// SaveVariant saves a single catalog variant
func (s *CatalogService) SaveVariant(ctx context.Context, variant *domain.VehicleVariant) error {
	if err := variant.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	variant.PrepareForStorage()

	if err := s.repo.Save(ctx, variant); err != nil {
		return fmt.Errorf("failed to save variant: %w", err)
	}

	s.invalidateCatalog(ctx)

	s.logger.InfoContext(ctx, "saved catalog variant",
		slog.String("id", variant.ID.String()),
		slog.String("slug", variant.Slug))

	return nil
}

// SaveVariants saves multiple variants with transaction support
func (s *CatalogService) SaveVariants(ctx context.Context, variants []domain.VehicleVariant) error {
	if len(variants) == 0 {
		s.logger.InfoContext(ctx, "no variants to save")
		return nil
	}

	// Validate all variants first
	for i := range variants {
		if err := variants[i].Validate(); err != nil {
			return fmt.Errorf("validation failed for %s: %w", variants[i].DisplayName(), err)
		}
		variants[i].PrepareForStorage()
	}

	if err := s.repo.SaveBatch(ctx, variants); err != nil {
		return fmt.Errorf("failed to save variants batch: %w", err)
	}

	s.invalidateCatalog(ctx)

	s.logger.InfoContext(ctx, "saved catalog variants",
		slog.Int("count", len(variants)))

	return nil
}

// BulkUpsert upserts a feed's worth of variants in batches
func (s *CatalogService) BulkUpsert(ctx context.Context, variants []domain.VehicleVariant) error {
	const batchSize = 100

	for i := 0; i < len(variants); i += batchSize {
		end := i + batchSize
		if end > len(variants) {
			end = len(variants)
		}

		if err := s.SaveVariants(ctx, variants[i:end]); err != nil {
			return fmt.Errorf("failed to save batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// GetByID retrieves a catalog variant by ID
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error) {
	variant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	if variant == nil {
		return nil, fmt.Errorf("catalog variant not found: %s", id)
	}
	return variant, nil
}

// GetBySlug retrieves a catalog variant by its storefront slug
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error) {
	variant, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant by slug: %w", err)
	}
	if variant == nil {
		return nil, fmt.Errorf("catalog variant not found: %s", slug)
	}
	return variant, nil
}

// UpdateVariant updates an existing variant
func (s *CatalogService) UpdateVariant(ctx context.Context, id uuid.UUID, variant *domain.VehicleVariant) error {
	variant.ID = id

	if err := variant.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if variant.Slug == "" {
		variant.Slug = domain.Slugify(variant.DisplayName())
	}

	if err := s.repo.Update(ctx, variant); err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}

	s.invalidateCatalog(ctx)

	s.logger.InfoContext(ctx, "updated catalog variant",
		slog.String("id", id.String()))

	return nil
}

// DeleteVariant deletes a variant (soft delete by default)
func (s *CatalogService) DeleteVariant(ctx context.Context, id uuid.UUID, permanent bool) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check variant existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("catalog variant not found: %s", id)
	}

	if permanent {
		err = s.repo.Delete(ctx, id)
	} else {
		err = s.repo.SoftDelete(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}

	s.invalidateCatalog(ctx)

	s.logger.InfoContext(ctx, "deleted catalog variant",
		slog.String("id", id.String()),
		slog.Bool("permanent", permanent))

	return nil
}

// Browse runs the storefront facet filter over the active catalog and
// returns one page of matches.
func (s *CatalogService) Browse(ctx context.Context, params ports.BrowseParams) (*ports.BrowseResult, error) {
	catalog, err := s.repo.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	criteria := s.buildCriteria(params)
	availableMakes := domain.AvailableMakes(catalog)
	criteria.NormalizeMakes(availableMakes)

	matched := domain.FilterVehicles(catalog, criteria)

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	totalCount := int64(len(matched))
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &ports.BrowseResult{
		Items:          matched[start:end],
		Page:           page,
		PageSize:       pageSize,
		TotalCount:     totalCount,
		TotalPages:     totalPages,
		AvailableMakes: availableMakes,
	}, nil
}

// buildCriteria lowers loosely typed browse params into typed filter
// criteria. Unknown facet strings become selections that match nothing
// in that bucket rather than errors.
func (s *CatalogService) buildCriteria(params ports.BrowseParams) domain.FilterCriteria {
	criteria := domain.FilterCriteria{
		Search:       strings.TrimSpace(params.Search),
		Makes:        upperSelection(params.Makes),
		FuelTags:     typedSelection[domain.FuelTag](params.FuelTags),
		Segments:     domain.SelectionOf(params.Segments...),
		BodyTypes:    typedSelection[domain.BodyType](params.BodyTypes),
		CCBuckets:    typedSelection[domain.CCBucket](params.CCBuckets),
		Brakes:       typedSelection[domain.BrakeTag](params.Brakes),
		Wheels:       typedSelection[domain.WheelTag](params.Wheels),
		Consoles:     typedSelection[domain.ConsoleTag](params.Consoles),
		Seats:        typedSelection[domain.SeatBucket](params.Seats),
		Weights:      typedSelection[domain.WeightBucket](params.Weights),
		Finishes:     typedSelection[domain.FinishTag](params.Finishes),
		MaxPrice:     params.MaxPrice,
		MaxEMI:       params.MaxEMI,
		Downpayment:  params.Downpayment,
		TenureMonths: params.TenureMonths,
		EMIRate:      s.finance.FlatMonthlyRate,
	}

	if criteria.Downpayment.IsZero() {
		criteria.Downpayment = s.finance.DefaultDownpayment
	}
	if criteria.TenureMonths == 0 {
		criteria.TenureMonths = s.finance.DefaultTenure
	}

	return criteria
}

func (s *CatalogService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"catalog:*", "search:*", "dash:*"} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))
		}
	}
}

func upperSelection(vals []string) domain.Selection[string] {
	upper := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			upper = append(upper, v)
		}
	}
	return domain.SelectionOf(upper...)
}

func typedSelection[T ~string](vals []string) domain.Selection[T] {
	typed := make([]T, 0, len(vals))
	for _, v := range vals {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			typed = append(typed, T(v))
		}
	}
	return domain.SelectionOf(typed...)
}
