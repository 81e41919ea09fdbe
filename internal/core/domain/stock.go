// internal/core/domain/stock.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockStatus is the lifecycle state of a physical stock unit
type StockStatus string

const (
	StockAvailable StockStatus = "AVAILABLE"
	StockReserved  StockStatus = "RESERVED"
	StockSold      StockStatus = "SOLD"
	StockDamaged   StockStatus = "DAMAGED"
	StockInTransit StockStatus = "IN_TRANSIT"
)

// IsValid reports whether s is a known stock status
func (s StockStatus) IsValid() bool {
	switch s {
	case StockAvailable, StockReserved, StockSold, StockDamaged, StockInTransit:
		return true
	}
	return false
}

// IsSellable reports whether a unit in this status counts toward
// sellable inventory for ledger deltas and dashboard totals.
func (s StockStatus) IsSellable() bool {
	return s == StockAvailable || s == StockReserved
}

// allowedTransitions is the authoritative transition table. Target order
// is significant: it is the order the storefront presents actions in.
var allowedTransitions = map[StockStatus][]StockStatus{
	StockAvailable: {StockReserved, StockSold, StockDamaged, StockInTransit},
	StockReserved:  {StockAvailable, StockSold, StockDamaged},
	StockSold:      {},
	StockDamaged:   {StockAvailable},
	StockInTransit: {StockAvailable, StockDamaged},
}

// AllowedTransitions returns the target statuses reachable from the
// given status, in presentation order. Unknown statuses have no targets.
// The returned slice is a copy and safe to mutate.
func AllowedTransitions(from StockStatus) []StockStatus {
	targets := allowedTransitions[from]
	out := make([]StockStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether the from->to edge exists in the table.
// Self-transitions are never allowed.
func CanTransition(from, to StockStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a requested status change has no
// edge in the transition table.
type ErrInvalidTransition struct {
	From StockStatus
	To   StockStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid stock transition from %s to %s", e.From, e.To)
}

// StockUnit is a single physical unit of a vehicle variant held by a
// dealership, tracked by chassis/engine identity.
type StockUnit struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	VariantID     uuid.UUID   `json:"variant_id" db:"variant_id"`
	DealershipID  uuid.UUID   `json:"dealership_id" db:"dealership_id"`
	ChassisNumber string      `json:"chassis_number" db:"chassis_number"`
	EngineNumber  string      `json:"engine_number,omitempty" db:"engine_number"`
	Color         string      `json:"color,omitempty" db:"color"`
	Status        StockStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Validate checks required identity fields and defaults the status
func (u *StockUnit) Validate() error {
	if u.VariantID == uuid.Nil {
		return fmt.Errorf("stock unit requires a variant")
	}
	if u.DealershipID == uuid.Nil {
		return fmt.Errorf("stock unit requires a dealership")
	}
	if u.ChassisNumber == "" {
		return fmt.Errorf("stock unit requires a chassis number")
	}
	if u.Status == "" {
		u.Status = StockInTransit
	}
	if !u.Status.IsValid() {
		return fmt.Errorf("unknown stock status %q", u.Status)
	}
	return nil
}

// PrepareForStorage assigns identity and timestamps before first insert
func (u *StockUnit) PrepareForStorage() {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
}

// LedgerEntry is one append-only row of the stock movement ledger. The
// ledger is never updated or deleted; balances are carried forward on
// each entry so history reads need no aggregation.
type LedgerEntry struct {
	ID           uuid.UUID `json:"id" db:"id"`
	StockUnitID  uuid.UUID `json:"stock_unit_id" db:"stock_unit_id"`
	QtyDelta     int       `json:"qty_delta" db:"qty_delta"`
	BalanceAfter int       `json:"balance_after" db:"balance_after"`
	ReasonCode   string    `json:"reason_code" db:"reason_code"`
	RefType      string    `json:"ref_type" db:"ref_type"`
	RefID        uuid.UUID `json:"ref_id" db:"ref_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Ledger reference types
const (
	RefTypeStatusChange = "STATUS_CHANGE"
	RefTypeInward       = "INWARD"
)

// TransitionReasonCode derives the ledger reason code for a status
// change: STATUS_ followed by the new status.
func TransitionReasonCode(to StockStatus) string {
	return "STATUS_" + string(to)
}

// SellableDelta is the ledger quantity delta for a from->to change:
// +1 entering sellable stock, -1 leaving it, 0 for moves within or
// outside the sellable set.
func SellableDelta(from, to StockStatus) int {
	return sellableQty(to) - sellableQty(from)
}

func sellableQty(s StockStatus) int {
	if s.IsSellable() {
		return 1
	}
	return 0
}

// NewTransitionEntry builds the ledger entry for a validated status
// change of the given unit.
func NewTransitionEntry(unit *StockUnit, from, to StockStatus, balanceAfter int, refID uuid.UUID) LedgerEntry {
	return LedgerEntry{
		ID:           uuid.New(),
		StockUnitID:  unit.ID,
		QtyDelta:     SellableDelta(from, to),
		BalanceAfter: balanceAfter,
		ReasonCode:   TransitionReasonCode(to),
		RefType:      RefTypeStatusChange,
		RefID:        refID,
		CreatedAt:    time.Now().UTC(),
	}
}
