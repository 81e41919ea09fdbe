// internal/core/services/stock.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// SoldNotifier is invoked after a unit reaches SOLD so downstream
// concerns (CRM, invoicing) run off the request path.
type SoldNotifier interface {
	NotifySold(ctx context.Context, unit *domain.StockUnit) error
}

// StockService handles stock unit business logic. Transition validation
// and ledger writes happen inside the repository's transaction; the
// service shapes results and triggers side effects.
type StockService struct {
	repo     ports.StockRepository
	notifier SoldNotifier
	logger   *slog.Logger
}

// Statically assert that *StockService implements the StockService interface.
var _ ports.StockService = (*StockService)(nil)

// NewStockService creates a new stock service
func NewStockService(repo ports.StockRepository, notifier SoldNotifier, logger *slog.Logger) *StockService {
	return &StockService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With(slog.String("service", "stock")),
	}
}

// Inward registers a new physical unit
func (s *StockService) Inward(ctx context.Context, unit *domain.StockUnit) error {
	if err := unit.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	unit.PrepareForStorage()

	if err := s.repo.Save(ctx, unit); err != nil {
		return fmt.Errorf("failed to inward stock unit: %w", err)
	}

	s.logger.InfoContext(ctx, "stock unit inwarded",
		slog.String("id", unit.ID.String()),
		slog.String("chassis", unit.ChassisNumber))

	return nil
}

// Get returns a unit with its ledger and the transitions the server will
// accept next.
func (s *StockService) Get(ctx context.Context, unitID uuid.UUID) (*ports.StockUnitDetail, error) {
	unit, err := s.repo.FindByID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock unit: %w", err)
	}
	if unit == nil {
		return nil, fmt.Errorf("stock unit not found: %s", unitID)
	}

	ledger, err := s.repo.Ledger(ctx, unitID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	return &ports.StockUnitDetail{
		Unit:               *unit,
		Ledger:             ledger,
		AllowedTransitions: domain.AllowedTransitions(unit.Status),
	}, nil
}

// List returns a dealership's units, optionally narrowed to one status
func (s *StockService) List(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("unknown stock status %q", status)
	}

	units, err := s.repo.FindByDealership(ctx, dealershipID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock units: %w", err)
	}
	return units, nil
}

// Transition moves a unit to a new status. Validation against the
// transition table happens under the repository's row lock, so a stale
// client loses cleanly instead of double-applying.
func (s *StockService) Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*ports.StockUnitDetail, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("unknown stock status %q", to)
	}

	unit, entry, err := s.repo.Transition(ctx, unitID, to, refID)
	if err != nil {
		return nil, err
	}

	if to == domain.StockSold && s.notifier != nil {
		if err := s.notifier.NotifySold(ctx, unit); err != nil {
			// The transition is committed; notification failure must not
			// roll it back.
			s.logger.ErrorContext(ctx, "sold notification failed",
				slog.String("unit_id", unitID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.logger.InfoContext(ctx, "stock transition recorded",
		slog.String("unit_id", unitID.String()),
		slog.String("reason", entry.ReasonCode),
		slog.Int("qty_delta", entry.QtyDelta))

	ledger, err := s.repo.Ledger(ctx, unitID, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	return &ports.StockUnitDetail{
		Unit:               *unit,
		Ledger:             ledger,
		AllowedTransitions: domain.AllowedTransitions(unit.Status),
	}, nil
}
