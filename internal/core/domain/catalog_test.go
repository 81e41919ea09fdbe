package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
)

func TestVehicleVariant_Validate(t *testing.T) {
	tests := []struct {
		name      string
		variant   *domain.VehicleVariant
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid_variant_with_all_fields",
			variant: &domain.VehicleVariant{
				Make:     "Honda",
				Model:    "Activa",
				Variant:  "6G STD",
				BodyType: domain.BodyScooter,
				FuelType: domain.FuelPetrol,
				Segment:  "Commuter",
				Price: domain.Price{
					ExShowroom: decimal.NewFromInt(78000),
				},
			},
			wantError: false,
		},
		{
			name: "missing_make",
			variant: &domain.VehicleVariant{
				Model:   "Activa",
				Variant: "6G STD",
			},
			wantError: true,
			errorMsg:  "make is required",
		},
		{
			name: "missing_model",
			variant: &domain.VehicleVariant{
				Make:    "Honda",
				Variant: "6G STD",
			},
			wantError: true,
			errorMsg:  "model is required",
		},
		{
			name: "defaults_applied_when_empty",
			variant: &domain.VehicleVariant{
				Make:  "Honda",
				Model: "Activa",
			},
			wantError: false,
		},
		{
			name: "unknown_body_type",
			variant: &domain.VehicleVariant{
				Make:     "Honda",
				Model:    "Activa",
				BodyType: domain.BodyType("HOVERCRAFT"),
			},
			wantError: true,
			errorMsg:  "unknown body type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.variant.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestVehicleVariant_Validate_Defaults(t *testing.T) {
	v := &domain.VehicleVariant{Make: "Honda", Model: "Activa"}
	require.NoError(t, v.Validate())

	assert.Equal(t, domain.BodyMotorcycle, v.BodyType)
	assert.Equal(t, domain.FuelPetrol, v.FuelType)
	assert.Equal(t, domain.DefaultSegment, v.Segment)
}

func TestVehicleVariant_BestPrice(t *testing.T) {
	tests := []struct {
		name  string
		price domain.Price
		want  int64
	}{
		{
			name: "offer_price_wins",
			price: domain.Price{
				ExShowroom: decimal.NewFromInt(100000),
				OnRoad:     decimal.NewFromInt(112000),
				OfferPrice: decimal.NewFromInt(95000),
			},
			want: 95000,
		},
		{
			name: "on_road_when_no_offer",
			price: domain.Price{
				ExShowroom: decimal.NewFromInt(100000),
				OnRoad:     decimal.NewFromInt(112000),
			},
			want: 112000,
		},
		{
			name: "ex_showroom_fallback",
			price: domain.Price{
				ExShowroom: decimal.NewFromInt(100000),
			},
			want: 100000,
		},
		{
			name:  "all_zero",
			price: domain.Price{},
			want:  0,
		},
		{
			name: "negative_offer_ignored",
			price: domain.Price{
				ExShowroom: decimal.NewFromInt(100000),
				OfferPrice: decimal.NewFromInt(-1),
			},
			want: 100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := domain.VehicleVariant{Price: tt.price}
			assert.True(t, v.BestPrice().Equal(decimal.NewFromInt(tt.want)),
				"got %s", v.BestPrice())
		})
	}
}

func TestSpecsFromMap(t *testing.T) {
	specs := domain.SpecsFromMap(map[string]any{
		"displacement_cc": "109.51",
		"front_brake":     "Disc",
		"rear_brake":      "Drum",
		"abs":             nil,
		"wheel":           "Alloy",
		"seat_height_mm":  780,
		"kerb_weight_kg":  "not-a-number",
	})

	assert.InDelta(t, 109.51, specs.DisplacementCC, 0.001)
	assert.Equal(t, "Disc", specs.FrontBrake)
	assert.Equal(t, "Drum", specs.RearBrake)
	assert.Empty(t, specs.ABS)
	assert.InDelta(t, 780, specs.SeatHeightMM, 0.001)
	assert.Zero(t, specs.KerbWeightKG, "unparseable numbers degrade to zero")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Honda Activa 6G STD", "honda-activa-6g-std"},
		{"  TVS  Jupiter 110  ", "tvs-jupiter-110"},
		{"Ather 450X (Gen 3)", "ather-450x-gen-3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.Slugify(tt.in))
	}
}

func TestVehicleVariant_DisplayName(t *testing.T) {
	v := domain.VehicleVariant{Make: "Honda", Model: "Activa", Variant: "6G STD"}
	assert.Equal(t, "Honda Activa 6G STD", v.DisplayName())

	v.Variant = ""
	assert.Equal(t, "Honda Activa", v.DisplayName())
}
