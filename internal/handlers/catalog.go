// internal/handlers/catalog.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// CatalogHandler handles catalog-related HTTP requests
type CatalogHandler struct {
	service ports.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service ports.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "catalog")),
	}
}

// Browse handles GET /api/v1/catalog
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := h.parseBrowseParams(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Browse(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to browse catalog",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to browse catalog")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetVariant handles GET /api/v1/catalog/{id}
func (h *CatalogHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	variant, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get variant",
			slog.String("id", idStr),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Catalog variant not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve variant")
		return
	}

	h.respondJSON(w, http.StatusOK, variant)
}

// GetVariantBySlug handles GET /api/v1/catalog/slug/{slug}
func (h *CatalogHandler) GetVariantBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := r.PathValue("slug")

	if slug == "" {
		h.respondError(w, http.StatusBadRequest, "Slug is required")
		return
	}

	variant, err := h.service.GetBySlug(ctx, slug)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get variant by slug",
			slog.String("slug", slug),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Catalog variant not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve variant")
		return
	}

	h.respondJSON(w, http.StatusOK, variant)
}

// CreateVariant handles POST /api/v1/catalog
func (h *CatalogHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	variant := req.ToDomain()

	if err := h.service.SaveVariant(ctx, variant); err != nil {
		h.logger.ErrorContext(ctx, "failed to create variant",
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "validation failed") {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to create variant")
		return
	}

	h.logger.InfoContext(ctx, "catalog variant created",
		slog.String("id", variant.ID.String()),
		slog.String("slug", variant.Slug))

	h.respondJSON(w, http.StatusCreated, variant)
}

// UpdateVariant handles PUT /api/v1/catalog/{id}
func (h *CatalogHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	var req VariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	variant := req.ToDomain()

	if err := h.service.UpdateVariant(ctx, id, variant); err != nil {
		h.logger.ErrorContext(ctx, "failed to update variant",
			slog.String("id", idStr),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Catalog variant not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to update variant")
		return
	}

	h.logger.InfoContext(ctx, "catalog variant updated",
		slog.String("id", idStr))

	h.respondJSON(w, http.StatusOK, variant)
}

// DeleteVariant handles DELETE /api/v1/catalog/{id}
func (h *CatalogHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"

	if err := h.service.DeleteVariant(ctx, id, permanent); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete variant",
			slog.String("id", idStr),
			slog.Bool("permanent", permanent),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Catalog variant not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to delete variant")
		return
	}

	h.logger.InfoContext(ctx, "catalog variant deleted",
		slog.String("id", idStr),
		slog.Bool("permanent", permanent))

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Catalog variant deleted successfully",
		"id":        idStr,
		"permanent": permanent,
	})
}

// parseBrowseParams decodes the storefront facet query parameters. The
// parameter names are the shareable-URL contract and must stay in sync
// with BrowseParams.Encode. Facet params repeat or carry comma-separated
// values: ?brand=honda&brand=tvs and ?brand=honda,tvs are equivalent.
func (h *CatalogHandler) parseBrowseParams(r *http.Request) (ports.BrowseParams, error) {
	q := r.URL.Query()

	params := ports.BrowseParams{
		Search:    q.Get("q"),
		Makes:     multiValue(q, "brand"),
		FuelTags:  multiValue(q, "fuel"),
		Segments:  multiValue(q, "segment"),
		BodyTypes: multiValue(q, "category"),
		CCBuckets: multiValue(q, "cc"),
		Brakes:    multiValue(q, "brake"),
		Wheels:    multiValue(q, "wheel"),
		Consoles:  multiValue(q, "console"),
		Seats:     multiValue(q, "seat"),
		Weights:   multiValue(q, "weight"),
		Finishes:  multiValue(q, "finish"),
		Page:      1,
		PageSize:  20,
	}

	var err error
	if params.MaxPrice, err = decimalParam(q.Get("maxPrice")); err != nil {
		return params, fmt.Errorf("invalid maxPrice: %s", q.Get("maxPrice"))
	}
	if params.MaxEMI, err = decimalParam(q.Get("maxEMI")); err != nil {
		return params, fmt.Errorf("invalid maxEMI: %s", q.Get("maxEMI"))
	}
	if params.Downpayment, err = decimalParam(q.Get("dp")); err != nil {
		return params, fmt.Errorf("invalid dp: %s", q.Get("dp"))
	}

	if tenure := q.Get("tenure"); tenure != "" {
		t, err := strconv.Atoi(tenure)
		if err != nil || t < 0 {
			return params, fmt.Errorf("invalid tenure: %s", tenure)
		}
		params.TenureMonths = t
	}

	if page := q.Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				params.PageSize = 100
			} else {
				params.PageSize = l
			}
		}
	}

	return params, nil
}

// multiValue collects repeated and comma-separated query values
func multiValue(q map[string][]string, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func decimalParam(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative value")
	}
	return d, nil
}

// Helper methods

func (h *CatalogHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *CatalogHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// VariantRequest represents the request body for creating or updating a
// catalog variant
type VariantRequest struct {
	Make       string                `json:"make"`
	Model      string                `json:"model"`
	Variant    string                `json:"variant,omitempty"`
	Slug       string                `json:"slug,omitempty"`
	BodyType   string                `json:"body_type,omitempty"`
	FuelType   string                `json:"fuel_type,omitempty"`
	Segment    string                `json:"segment,omitempty"`
	ExShowroom decimal.Decimal       `json:"ex_showroom,omitempty"`
	OnRoad     decimal.Decimal       `json:"on_road,omitempty"`
	OfferPrice decimal.Decimal       `json:"offer_price,omitempty"`
	Specs      map[string]any        `json:"specs,omitempty"`
	Colors     []domain.ColorOption  `json:"colors,omitempty"`
	IsActive   *bool                 `json:"is_active,omitempty"`
}

// Validate validates the variant request
func (r *VariantRequest) Validate() error {
	if r.Make == "" {
		return fmt.Errorf("make is required")
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if r.ExShowroom.IsNegative() || r.OnRoad.IsNegative() || r.OfferPrice.IsNegative() {
		return fmt.Errorf("prices cannot be negative")
	}
	return nil
}

// ToDomain converts the request to a domain model
func (r *VariantRequest) ToDomain() *domain.VehicleVariant {
	variant := &domain.VehicleVariant{
		ID:       uuid.New(),
		Make:     r.Make,
		Model:    r.Model,
		Variant:  r.Variant,
		Slug:     r.Slug,
		BodyType: domain.BodyType(strings.ToUpper(r.BodyType)),
		FuelType: domain.FuelType(strings.ToUpper(r.FuelType)),
		Segment:  r.Segment,
		Price: domain.Price{
			ExShowroom: r.ExShowroom,
			OnRoad:     r.OnRoad,
			OfferPrice: r.OfferPrice,
		},
		Specs:    domain.SpecsFromMap(r.Specs),
		Colors:   r.Colors,
		IsActive: true,
	}

	if r.IsActive != nil {
		variant.IsActive = *r.IsActive
	}

	return variant
}
