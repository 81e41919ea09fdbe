// internal/core/ports/stock_repository.go
package ports

import (
	"context"
	"time"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/google/uuid"
)

// StockRepository defines the persistence port for stock units and their
// append-only movement ledger.
type StockRepository interface {
	Save(ctx context.Context, unit *domain.StockUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.StockUnit, error)
	FindByDealership(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error)

	// Transition atomically validates the edge against the unit's current
	// status, updates the unit and appends the ledger entry. The unit row
	// is locked for the duration so concurrent requests serialize.
	Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*domain.StockUnit, *domain.LedgerEntry, error)

	Ledger(ctx context.Context, unitID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	RecentLedger(ctx context.Context, since time.Time, limit int) ([]domain.LedgerEntry, error)
	CountByStatus(ctx context.Context, dealershipID uuid.UUID) (map[domain.StockStatus]int64, error)
}
