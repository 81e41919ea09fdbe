// internal/core/ports/catalog_service.go
package ports

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService defines the application service port for the catalog.
// This interface is implemented by the application service.
type CatalogService interface {
	SaveVariant(ctx context.Context, variant *domain.VehicleVariant) error
	SaveVariants(ctx context.Context, variants []domain.VehicleVariant) error
	BulkUpsert(ctx context.Context, variants []domain.VehicleVariant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleVariant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.VehicleVariant, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, variant *domain.VehicleVariant) error
	DeleteVariant(ctx context.Context, id uuid.UUID, permanent bool) error
	// Note: BrowseParams and BrowseResult live here to avoid circular
	// dependencies between handlers and services.
	Browse(ctx context.Context, params BrowseParams) (*BrowseResult, error)
}

// BrowseParams holds the decoded storefront facet selections. Empty
// slices mean the facet is unfiltered.
type BrowseParams struct {
	Search    string
	Makes     []string
	FuelTags  []string
	Segments  []string
	BodyTypes []string
	CCBuckets []string
	Brakes    []string
	Wheels    []string
	Consoles  []string
	Seats     []string
	Weights   []string
	Finishes  []string

	MaxPrice     decimal.Decimal
	MaxEMI       decimal.Decimal
	Downpayment  decimal.Decimal
	TenureMonths int

	Page     int
	PageSize int
}

// Encode writes the selections to URL query values under the storefront's
// fixed parameter names, the inverse of the catalog handler's query
// parsing. Zero values are omitted, so an absent parameter and a default
// decode to the same selection and filter state survives being pasted
// into a shared link.
func (p BrowseParams) Encode() url.Values {
	v := url.Values{}

	setFacet := func(key string, vals []string) {
		if len(vals) > 0 {
			v.Set(key, strings.Join(vals, ","))
		}
	}

	if p.Search != "" {
		v.Set("q", p.Search)
	}
	setFacet("brand", p.Makes)
	setFacet("fuel", p.FuelTags)
	setFacet("segment", p.Segments)
	setFacet("category", p.BodyTypes)
	setFacet("cc", p.CCBuckets)
	setFacet("brake", p.Brakes)
	setFacet("wheel", p.Wheels)
	setFacet("console", p.Consoles)
	setFacet("seat", p.Seats)
	setFacet("weight", p.Weights)
	setFacet("finish", p.Finishes)

	if p.MaxPrice.IsPositive() {
		v.Set("maxPrice", p.MaxPrice.String())
	}
	if p.MaxEMI.IsPositive() {
		v.Set("maxEMI", p.MaxEMI.String())
	}
	if p.Downpayment.IsPositive() {
		v.Set("dp", p.Downpayment.String())
	}
	if p.TenureMonths > 0 {
		v.Set("tenure", strconv.Itoa(p.TenureMonths))
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("limit", strconv.Itoa(p.PageSize))
	}

	return v
}

// BrowseResult holds one page of filtered catalog plus the facet universe
// the storefront renders its filter menus from.
type BrowseResult struct {
	Items          []domain.VehicleVariant `json:"items"`
	Page           int                     `json:"page"`
	PageSize       int                     `json:"page_size"`
	TotalCount     int64                   `json:"total_count"`
	TotalPages     int                     `json:"total_pages"`
	AvailableMakes []string                `json:"available_makes"`
}
