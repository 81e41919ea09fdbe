package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
)

func TestEstimateMonthlyEMI(t *testing.T) {
	tests := []struct {
		name        string
		price       int64
		downpayment int64
		want        int64
	}{
		{
			// (96110 - 15000) * 0.035 = 2838.85 -> 2839
			name:        "rounds_to_nearest_rupee",
			price:       96110,
			downpayment: 15000,
			want:        2839,
		},
		{
			name:        "zero_downpayment",
			price:       100000,
			downpayment: 0,
			want:        3500,
		},
		{
			name:        "downpayment_equals_price",
			price:       80000,
			downpayment: 80000,
			want:        0,
		},
		{
			name:        "downpayment_exceeds_price_clamps_to_zero",
			price:       80000,
			downpayment: 100000,
			want:        0,
		},
		{
			name:        "zero_price",
			price:       0,
			downpayment: 0,
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.EstimateMonthlyEMI(
				decimal.NewFromInt(tt.price),
				decimal.NewFromInt(tt.downpayment),
			)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)),
				"price=%d dp=%d: got %s want %d", tt.price, tt.downpayment, got, tt.want)
		})
	}
}

func TestEstimateMonthlyEMIAtRate(t *testing.T) {
	got := domain.EstimateMonthlyEMIAtRate(
		decimal.NewFromInt(100000),
		decimal.NewFromInt(20000),
		decimal.RequireFromString("0.02"),
	)
	assert.True(t, got.Equal(decimal.NewFromInt(1600)), "got %s", got)
}
