// internal/handlers/stock.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// StockHandler handles stock-related HTTP requests
type StockHandler struct {
	service ports.StockService
	logger  *slog.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(service ports.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "stock")),
	}
}

// Inward handles POST /api/v1/stock
func (h *StockHandler) Inward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	unit := req.ToDomain()

	if err := h.service.Inward(ctx, unit); err != nil {
		h.logger.ErrorContext(ctx, "failed to inward stock unit",
			slog.String("chassis", req.ChassisNumber),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "validation failed") {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to inward stock unit")
		return
	}

	h.logger.InfoContext(ctx, "stock unit inwarded",
		slog.String("id", unit.ID.String()),
		slog.String("chassis", unit.ChassisNumber))

	h.respondJSON(w, http.StatusCreated, unit)
}

// GetUnit handles GET /api/v1/stock/{id}
func (h *StockHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid stock unit ID format")
		return
	}

	detail, err := h.service.Get(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get stock unit",
			slog.String("id", idStr),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Stock unit not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve stock unit")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// ListUnits handles GET /api/v1/stock
func (h *StockHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dealershipStr := r.URL.Query().Get("dealership_id")
	dealershipID, err := uuid.Parse(dealershipStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "dealership_id is required")
		return
	}

	status := domain.StockStatus(strings.ToUpper(r.URL.Query().Get("status")))

	units, err := h.service.List(ctx, dealershipID, status)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list stock units",
			slog.String("dealership_id", dealershipStr),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "unknown stock status") {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to list stock units")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": units,
		"count": len(units),
	})
}

// Transition handles POST /api/v1/stock/{id}/transition
func (h *StockHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid stock unit ID format")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.service.Transition(ctx, id, domain.StockStatus(strings.ToUpper(req.To)), req.RefID)
	if err != nil {
		var invalid *domain.ErrInvalidTransition
		if errors.As(err, &invalid) {
			h.respondError(w, http.StatusConflict, invalid.Error())
			return
		}

		h.logger.ErrorContext(ctx, "failed to transition stock unit",
			slog.String("id", idStr),
			slog.String("to", req.To),
			slog.String("error", err.Error()))

		if strings.Contains(err.Error(), "unknown stock status") {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.Contains(err.Error(), "not found") {
			h.respondError(w, http.StatusNotFound, "Stock unit not found")
			return
		}

		h.respondError(w, http.StatusInternalServerError, "Failed to transition stock unit")
		return
	}

	h.logger.InfoContext(ctx, "stock unit transitioned",
		slog.String("id", idStr),
		slog.String("to", string(detail.Unit.Status)))

	h.respondJSON(w, http.StatusOK, detail)
}

// Helper methods

func (h *StockHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *StockHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// Request/Response DTOs

// InwardRequest represents the request body for registering a stock unit
type InwardRequest struct {
	VariantID     uuid.UUID `json:"variant_id"`
	DealershipID  uuid.UUID `json:"dealership_id"`
	ChassisNumber string    `json:"chassis_number"`
	EngineNumber  string    `json:"engine_number,omitempty"`
	Color         string    `json:"color,omitempty"`
	Status        string    `json:"status,omitempty"`
}

// Validate validates the inward request
func (r *InwardRequest) Validate() error {
	if r.VariantID == uuid.Nil {
		return fmt.Errorf("variant_id is required")
	}
	if r.DealershipID == uuid.Nil {
		return fmt.Errorf("dealership_id is required")
	}
	if r.ChassisNumber == "" {
		return fmt.Errorf("chassis_number is required")
	}
	return nil
}

// ToDomain converts the request to a domain model
func (r *InwardRequest) ToDomain() *domain.StockUnit {
	return &domain.StockUnit{
		ID:            uuid.New(),
		VariantID:     r.VariantID,
		DealershipID:  r.DealershipID,
		ChassisNumber: r.ChassisNumber,
		EngineNumber:  r.EngineNumber,
		Color:         r.Color,
		Status:        domain.StockStatus(strings.ToUpper(r.Status)),
	}
}

// TransitionRequest represents the request body for a status change
type TransitionRequest struct {
	To    string    `json:"to"`
	RefID uuid.UUID `json:"ref_id,omitempty"`
}

// Validate validates the transition request
func (r *TransitionRequest) Validate() error {
	if r.To == "" {
		return fmt.Errorf("to is required")
	}
	return nil
}
