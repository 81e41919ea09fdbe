// internal/core/ports/stock_service.go
package ports

import (
	"context"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/google/uuid"
)

// StockService defines the application service port for stock tracking.
type StockService interface {
	Inward(ctx context.Context, unit *domain.StockUnit) error
	Get(ctx context.Context, unitID uuid.UUID) (*StockUnitDetail, error)
	List(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error)
	Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*StockUnitDetail, error)
}

// StockUnitDetail is a stock unit together with its movement history and
// the transitions the server will accept next. Clients render actions
// from AllowedTransitions instead of hardcoding the table.
type StockUnitDetail struct {
	Unit               domain.StockUnit     `json:"unit"`
	Ledger             []domain.LedgerEntry `json:"ledger"`
	AllowedTransitions []domain.StockStatus `json:"allowed_transitions"`
}
