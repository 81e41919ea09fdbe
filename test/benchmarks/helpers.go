// test/benchmarks/helpers.go
package benchmarks

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookmybike/marketplace-be/internal/core/domain"
)

var benchmarkMakes = []string{"HONDA", "BAJAJ", "TVS", "HERO", "YAMAHA", "SUZUKI", "ROYAL ENFIELD"}

var benchmarkModels = []struct {
	model    string
	body     domain.BodyType
	fuel     domain.FuelType
	cc       float64
	exPrice  int64
	seatMM   float64
	weightKG float64
}{
	{"Activa 6G", domain.BodyScooter, domain.FuelPetrol, 109.5, 78000, 780, 106},
	{"Splendor Plus", domain.BodyMotorcycle, domain.FuelPetrol, 97.2, 75000, 785, 112},
	{"Pulsar NS200", domain.BodyMotorcycle, domain.FuelPetrol, 199.5, 142000, 805, 158},
	{"Apache RTR 160", domain.BodyMotorcycle, domain.FuelPetrol, 159.7, 122000, 800, 144},
	{"iQube S", domain.BodyScooter, domain.FuelEV, 0, 125000, 770, 117},
	{"Chetak Premium", domain.BodyScooter, domain.FuelEV, 0, 132000, 780, 134},
	{"MT-15 V2", domain.BodyMotorcycle, domain.FuelPetrol, 155, 168000, 810, 139},
	{"Classic 350", domain.BodyMotorcycle, domain.FuelPetrol, 349.3, 193000, 805, 195},
}

// createBenchmarkCatalog builds an in-memory catalog of the given size
// with a realistic spread of makes, body types and price points.
func createBenchmarkCatalog(numVariants int) []domain.VehicleVariant {
	variants := make([]domain.VehicleVariant, 0, numVariants)

	for i := 0; i < numVariants; i++ {
		m := benchmarkMakes[i%len(benchmarkMakes)]
		spec := benchmarkModels[i%len(benchmarkModels)]

		exShowroom := decimal.NewFromInt(spec.exPrice + int64(i%20)*1000)
		variants = append(variants, domain.VehicleVariant{
			ID:       uuid.New(),
			Make:     m,
			Model:    spec.model,
			Variant:  fmt.Sprintf("Trim %d", i%4),
			Slug:     fmt.Sprintf("%s-%s-%d", strings.ToLower(m), strings.ToLower(strings.ReplaceAll(spec.model, " ", "-")), i),
			BodyType: spec.body,
			FuelType: spec.fuel,
			Segment:  domain.DefaultSegment,
			Price: domain.Price{
				ExShowroom: exShowroom,
				OnRoad:     exShowroom.Mul(decimal.RequireFromString("1.18")),
			},
			Specs: domain.Specs{
				DisplacementCC: spec.cc,
				FrontBrake:     "disc",
				RearBrake:      "drum",
				ABS:            "single-channel",
				Wheel:          "alloy",
				Console:        "digital",
				SeatHeightMM:   spec.seatMM,
				KerbWeightKG:   spec.weightKG,
			},
			IsActive: true,
		})
	}

	return variants
}

// createBenchmarkFeed renders a catalog feed payload of the given size,
// in the importer's wire format.
func createBenchmarkFeed(numVariants int) []byte {
	type feedVariant struct {
		Make       string         `json:"make"`
		Model      string         `json:"model"`
		Variant    string         `json:"variant"`
		BodyType   string         `json:"body_type"`
		FuelType   string         `json:"fuel_type"`
		ExShowroom string         `json:"ex_showroom"`
		OnRoad     string         `json:"on_road"`
		Specs      map[string]any `json:"specs"`
	}

	feed := make([]feedVariant, 0, numVariants)
	for i := 0; i < numVariants; i++ {
		m := benchmarkMakes[i%len(benchmarkMakes)]
		spec := benchmarkModels[i%len(benchmarkModels)]
		feed = append(feed, feedVariant{
			Make:       m,
			Model:      spec.model,
			Variant:    fmt.Sprintf("Trim %d", i%4),
			BodyType:   string(spec.body),
			FuelType:   string(spec.fuel),
			ExShowroom: fmt.Sprintf("%d", spec.exPrice),
			OnRoad:     fmt.Sprintf("%d", spec.exPrice+14000),
			Specs: map[string]any{
				"displacement_cc": spec.cc,
				"front_brake":     "disc",
				"rear_brake":      "drum",
				"seat_height_mm":  spec.seatMM,
				"kerb_weight_kg":  spec.weightKG,
			},
		})
	}

	data, _ := json.Marshal(feed)
	return data
}
