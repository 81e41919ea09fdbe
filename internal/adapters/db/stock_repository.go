// internal/adapters/db/stock_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// stockRepository implements ports.StockRepository
type stockRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *Database, logger *slog.Logger) ports.StockRepository {
	return &stockRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "stock")),
	}
}

// Save creates a new stock unit and its opening ledger entry in one
// transaction.
func (r *stockRepository) Save(ctx context.Context, unit *domain.StockUnit) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO stock_units (
				id, variant_id, dealership_id, chassis_number, engine_number,
				color, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRow(ctx, query,
			unit.ID, unit.VariantID, unit.DealershipID, unit.ChassisNumber, unit.EngineNumber,
			unit.Color, unit.Status, unit.CreatedAt, unit.UpdatedAt,
		).Scan(&unit.ID, &unit.CreatedAt, &unit.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save stock unit: %w", err)
		}

		entry := domain.LedgerEntry{
			ID:           uuid.New(),
			StockUnitID:  unit.ID,
			QtyDelta:     0,
			BalanceAfter: 0,
			ReasonCode:   domain.TransitionReasonCode(unit.Status),
			RefType:      domain.RefTypeInward,
			RefID:        unit.ID,
			CreatedAt:    time.Now().UTC(),
		}
		if unit.Status.IsSellable() {
			entry.QtyDelta = 1
			entry.BalanceAfter = 1
		}

		if err := appendLedgerEntry(ctx, tx, &entry); err != nil {
			return err
		}

		r.logger.DebugContext(ctx, "stock unit inwarded",
			slog.String("id", unit.ID.String()),
			slog.String("chassis", unit.ChassisNumber),
			slog.String("status", string(unit.Status)))

		return nil
	})
}

// FindByID retrieves a stock unit by ID
func (r *stockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.StockUnit, error) {
	query := `
		SELECT id, variant_id, dealership_id, chassis_number, engine_number,
			color, status, created_at, updated_at
		FROM stock_units
		WHERE id = $1`

	unit, err := scanStockUnit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find stock unit: %w", err)
	}
	return unit, nil
}

// FindByDealership lists a dealership's units, optionally narrowed to one
// status.
func (r *stockRepository) FindByDealership(ctx context.Context, dealershipID uuid.UUID, status domain.StockStatus) ([]domain.StockUnit, error) {
	qb := squirrel.Select(
		"id", "variant_id", "dealership_id", "chassis_number", "engine_number",
		"color", "status", "created_at", "updated_at",
	).From("stock_units").
		Where(squirrel.Eq{"dealership_id": dealershipID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if status != "" {
		qb = qb.Where(squirrel.Eq{"status": status})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock units: %w", err)
	}
	defer rows.Close()

	var units []domain.StockUnit
	for rows.Next() {
		unit, err := scanStockUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock unit: %w", err)
		}
		units = append(units, *unit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return units, nil
}

// Transition atomically moves a unit to a new status. The unit row is
// locked first so concurrent requests against the same unit serialize;
// the loser of the race revalidates against the winner's final status
// and fails with ErrInvalidTransition if the edge is gone.
func (r *stockRepository) Transition(ctx context.Context, unitID uuid.UUID, to domain.StockStatus, refID uuid.UUID) (*domain.StockUnit, *domain.LedgerEntry, error) {
	var unit *domain.StockUnit
	var entry domain.LedgerEntry

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, variant_id, dealership_id, chassis_number, engine_number,
				color, status, created_at, updated_at
			FROM stock_units
			WHERE id = $1
			FOR UPDATE`, unitID)

		var err error
		unit, err = scanStockUnit(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				return fmt.Errorf("stock unit not found: %s", unitID)
			}
			return fmt.Errorf("failed to lock stock unit: %w", err)
		}

		from := unit.Status
		if !domain.CanTransition(from, to) {
			return &domain.ErrInvalidTransition{From: from, To: to}
		}

		now := time.Now().UTC()
		_, err = tx.Exec(ctx,
			`UPDATE stock_units SET status = $2, updated_at = $3 WHERE id = $1`,
			unitID, to, now)
		if err != nil {
			return fmt.Errorf("failed to update stock unit: %w", err)
		}
		unit.Status = to
		unit.UpdatedAt = now

		var prevBalance int
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(
				(SELECT balance_after FROM stock_ledger
				 WHERE stock_unit_id = $1
				 ORDER BY created_at DESC, id DESC LIMIT 1), 0)`,
			unitID).Scan(&prevBalance)
		if err != nil {
			return fmt.Errorf("failed to read ledger balance: %w", err)
		}

		entry = domain.NewTransitionEntry(unit, from, to, prevBalance+domain.SellableDelta(from, to), refID)
		if err := appendLedgerEntry(ctx, tx, &entry); err != nil {
			return err
		}

		r.logger.InfoContext(ctx, "stock unit transitioned",
			slog.String("id", unitID.String()),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("reason", entry.ReasonCode))

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return unit, &entry, nil
}

// Ledger returns a unit's movement history, newest first
func (r *stockRepository) Ledger(ctx context.Context, unitID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, stock_unit_id, qty_delta, balance_after, reason_code,
			ref_type, ref_id, created_at
		FROM stock_ledger
		WHERE stock_unit_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return r.queryLedger(ctx, query, unitID, limit)
}

// RecentLedger returns ledger activity across all units since a cutoff
func (r *stockRepository) RecentLedger(ctx context.Context, since time.Time, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, stock_unit_id, qty_delta, balance_after, reason_code,
			ref_type, ref_id, created_at
		FROM stock_ledger
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return r.queryLedger(ctx, query, since, limit)
}

// CountByStatus returns a dealership's unit counts grouped by status
func (r *stockRepository) CountByStatus(ctx context.Context, dealershipID uuid.UUID) (map[domain.StockStatus]int64, error) {
	qb := squirrel.Select("status", "COUNT(*)").
		From("stock_units").
		GroupBy("status").
		PlaceholderFormat(squirrel.Dollar)

	if dealershipID != uuid.Nil {
		qb = qb.Where(squirrel.Eq{"dealership_id": dealershipID})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count stock by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.StockStatus]int64)
	for rows.Next() {
		var status domain.StockStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

func (r *stockRepository) queryLedger(ctx context.Context, query string, args ...interface{}) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		err := rows.Scan(
			&e.ID, &e.StockUnitID, &e.QtyDelta, &e.BalanceAfter, &e.ReasonCode,
			&e.RefType, &e.RefID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

func appendLedgerEntry(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_ledger (
			id, stock_unit_id, qty_delta, balance_after, reason_code,
			ref_type, ref_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.StockUnitID, entry.QtyDelta, entry.BalanceAfter, entry.ReasonCode,
		entry.RefType, entry.RefID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func scanStockUnit(row pgx.Row) (*domain.StockUnit, error) {
	unit := &domain.StockUnit{}
	var engineNumber, color sql.NullString

	err := row.Scan(
		&unit.ID, &unit.VariantID, &unit.DealershipID, &unit.ChassisNumber, &engineNumber,
		&color, &unit.Status, &unit.CreatedAt, &unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	unit.EngineNumber = engineNumber.String
	unit.Color = color.String
	return unit, nil
}
