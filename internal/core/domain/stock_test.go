package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
)

func TestAllowedTransitions(t *testing.T) {
	tests := []struct {
		from domain.StockStatus
		want []domain.StockStatus
	}{
		{
			from: domain.StockAvailable,
			want: []domain.StockStatus{domain.StockReserved, domain.StockSold, domain.StockDamaged, domain.StockInTransit},
		},
		{
			from: domain.StockReserved,
			want: []domain.StockStatus{domain.StockAvailable, domain.StockSold, domain.StockDamaged},
		},
		{
			from: domain.StockSold,
			want: []domain.StockStatus{},
		},
		{
			from: domain.StockDamaged,
			want: []domain.StockStatus{domain.StockAvailable},
		},
		{
			from: domain.StockInTransit,
			want: []domain.StockStatus{domain.StockAvailable, domain.StockDamaged},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got := domain.AllowedTransitions(tt.from)
			assert.Equal(t, tt.want, got, "target order is part of the contract")
		})
	}
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	first := domain.AllowedTransitions(domain.StockAvailable)
	first[0] = domain.StockSold

	second := domain.AllowedTransitions(domain.StockAvailable)
	assert.Equal(t, domain.StockReserved, second[0])
}

func TestCanTransition(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.StockAvailable, domain.StockReserved))
	assert.True(t, domain.CanTransition(domain.StockReserved, domain.StockAvailable))
	assert.True(t, domain.CanTransition(domain.StockReserved, domain.StockDamaged), "reserved units can surface damage before release")
	assert.True(t, domain.CanTransition(domain.StockDamaged, domain.StockAvailable))

	assert.False(t, domain.CanTransition(domain.StockSold, domain.StockAvailable), "sold is terminal")
	assert.False(t, domain.CanTransition(domain.StockDamaged, domain.StockSold))
	assert.False(t, domain.CanTransition(domain.StockAvailable, domain.StockAvailable), "self transitions are not edges")
	assert.False(t, domain.CanTransition(domain.StockStatus("BOGUS"), domain.StockAvailable))
}

func TestErrInvalidTransition(t *testing.T) {
	err := &domain.ErrInvalidTransition{From: domain.StockSold, To: domain.StockAvailable}
	assert.Contains(t, err.Error(), "SOLD")
	assert.Contains(t, err.Error(), "AVAILABLE")
}

func TestStockUnit_Validate(t *testing.T) {
	valid := func() *domain.StockUnit {
		return &domain.StockUnit{
			VariantID:     uuid.New(),
			DealershipID:  uuid.New(),
			ChassisNumber: "MD2A11CZ1NCG12345",
			Status:        domain.StockAvailable,
		}
	}

	t.Run("valid_unit", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing_variant", func(t *testing.T) {
		u := valid()
		u.VariantID = uuid.Nil
		assert.ErrorContains(t, u.Validate(), "variant")
	})

	t.Run("missing_dealership", func(t *testing.T) {
		u := valid()
		u.DealershipID = uuid.Nil
		assert.ErrorContains(t, u.Validate(), "dealership")
	})

	t.Run("missing_chassis", func(t *testing.T) {
		u := valid()
		u.ChassisNumber = ""
		assert.ErrorContains(t, u.Validate(), "chassis")
	})

	t.Run("empty_status_defaults_to_in_transit", func(t *testing.T) {
		u := valid()
		u.Status = ""
		require.NoError(t, u.Validate())
		assert.Equal(t, domain.StockInTransit, u.Status)
	})

	t.Run("unknown_status", func(t *testing.T) {
		u := valid()
		u.Status = "MISPLACED"
		assert.ErrorContains(t, u.Validate(), "unknown stock status")
	})
}

func TestSellableDelta(t *testing.T) {
	tests := []struct {
		from, to domain.StockStatus
		want     int
	}{
		{domain.StockInTransit, domain.StockAvailable, 1},
		{domain.StockAvailable, domain.StockSold, -1},
		{domain.StockAvailable, domain.StockReserved, 0},
		{domain.StockReserved, domain.StockSold, -1},
		{domain.StockDamaged, domain.StockAvailable, 1},
		{domain.StockInTransit, domain.StockDamaged, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.SellableDelta(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestNewTransitionEntry(t *testing.T) {
	unit := &domain.StockUnit{ID: uuid.New()}
	refID := uuid.New()

	entry := domain.NewTransitionEntry(unit, domain.StockAvailable, domain.StockSold, 4, refID)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, unit.ID, entry.StockUnitID)
	assert.Equal(t, -1, entry.QtyDelta)
	assert.Equal(t, 4, entry.BalanceAfter)
	assert.Equal(t, "STATUS_SOLD", entry.ReasonCode)
	assert.Equal(t, domain.RefTypeStatusChange, entry.RefType)
	assert.Equal(t, refID, entry.RefID)
	assert.False(t, entry.CreatedAt.IsZero())
}
