package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// DashboardHandler handles dealership dashboard operations
type DashboardHandler struct {
	catalog  ports.CatalogRepository
	stock    ports.StockRepository
	cache    ports.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(catalog ports.CatalogRepository, stock ports.StockRepository, cache ports.CacheRepository, cacheTTL time.Duration, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		catalog:  catalog,
		stock:    stock,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dealershipStr := r.URL.Query().Get("dealership_id")
	dealershipID, err := uuid.Parse(dealershipStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "dealership_id is required")
		return
	}

	// Try cache first
	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, dealershipStr)
	var dashboard DashboardData

	err = h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
		return h.loadDashboardData(ctx, dealershipID)
	}, h.cacheTTL)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	h.respondJSON(w, http.StatusOK, dashboard)
}

// GetMovements handles GET /api/v1/dashboard/movements
func (h *DashboardHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse time range
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "7d"
	}
	window, err := time.ParseDuration(periodDuration(period))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid period")
		return
	}

	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, "movements", period)
	var movements MovementData

	err = h.cache.GetOrSet(ctx, cacheKey, &movements, func() (interface{}, error) {
		return h.loadMovementData(ctx, period, window)
	}, h.cacheTTL)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load movements", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load movements")
		return
	}

	h.respondJSON(w, http.StatusOK, movements)
}

func (h *DashboardHandler) loadDashboardData(ctx context.Context, dealershipID uuid.UUID) (*DashboardData, error) {
	dashboard := &DashboardData{
		DealershipID: dealershipID,
		Timestamp:    time.Now(),
	}

	counts, err := h.stock.CountByStatus(ctx, dealershipID)
	if err != nil {
		return nil, err
	}

	for _, status := range []domain.StockStatus{
		domain.StockAvailable,
		domain.StockReserved,
		domain.StockSold,
		domain.StockDamaged,
		domain.StockInTransit,
	} {
		dashboard.StatusBreakdown = append(dashboard.StatusBreakdown, StatusBreakdown{
			Status: status,
			Count:  counts[status],
		})
		dashboard.Summary.TotalUnits += counts[status]
		if status.IsSellable() {
			dashboard.Summary.SellableUnits += counts[status]
		}
	}
	dashboard.Summary.SoldUnits = counts[domain.StockSold]

	variantCount, err := h.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	dashboard.Summary.ActiveVariants = variantCount

	return dashboard, nil
}

func (h *DashboardHandler) loadMovementData(ctx context.Context, period string, window time.Duration) (*MovementData, error) {
	since := time.Now().Add(-window)

	entries, err := h.stock.RecentLedger(ctx, since, 100)
	if err != nil {
		return nil, err
	}

	movements := &MovementData{
		Period:  period,
		Since:   since,
		Entries: entries,
	}
	for _, e := range entries {
		movements.NetDelta += e.QtyDelta
	}

	return movements, nil
}

func periodDuration(period string) string {
	switch period {
	case "24h":
		return "24h"
	case "7d":
		return "168h"
	case "30d":
		return "720h"
	default:
		return period
	}
}

// Type definitions

type DashboardData struct {
	DealershipID    uuid.UUID         `json:"dealership_id"`
	Summary         DashboardSummary  `json:"summary"`
	StatusBreakdown []StatusBreakdown `json:"status_breakdown"`
	Timestamp       time.Time         `json:"timestamp"`
}

type DashboardSummary struct {
	TotalUnits     int64 `json:"total_units"`
	SellableUnits  int64 `json:"sellable_units"`
	SoldUnits      int64 `json:"sold_units"`
	ActiveVariants int64 `json:"active_variants"`
}

type StatusBreakdown struct {
	Status domain.StockStatus `json:"status"`
	Count  int64              `json:"count"`
}

type MovementData struct {
	Period   string               `json:"period"`
	Since    time.Time            `json:"since"`
	NetDelta int                  `json:"net_delta"`
	Entries  []domain.LedgerEntry `json:"entries"`
}

// Helper methods

func (h *DashboardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DashboardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
