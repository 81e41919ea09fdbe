// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// seedVariant mirrors one entry of a JSON catalog feed file.
type seedVariant struct {
	Make       string         `json:"make"`
	Model      string         `json:"model"`
	Variant    string         `json:"variant"`
	BodyType   string         `json:"body_type"`
	FuelType   string         `json:"fuel_type"`
	Segment    string         `json:"segment"`
	ExShowroom string         `json:"ex_showroom"`
	OnRoad     string         `json:"on_road"`
	OfferPrice string         `json:"offer_price"`
	Specs      map[string]any `json:"specs"`
	Colors     []string       `json:"colors"`
}

func main() {
	var (
		dsn      = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		feedFile = flag.String("file", "", "optional JSON feed file to seed from")
		stockPer = flag.Int("stock", 3, "stock units to create per variant")
		truncate = flag.Bool("truncate", false, "truncate catalog and stock tables first")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dsn == "" {
		logger.Error("no DSN provided, set -dsn or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		logger.Error("failed to connect", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if *truncate {
		if _, err := pool.Exec(ctx, `TRUNCATE stock_ledger, stock_units, vehicle_variants CASCADE`); err != nil {
			logger.Error("failed to truncate tables", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("tables truncated")
	}

	variants := defaultCatalog()
	if *feedFile != "" {
		variants, err = loadFeed(*feedFile)
		if err != nil {
			logger.Error("failed to load feed file", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	variantIDs, err := seedCatalog(ctx, pool, variants)
	if err != nil {
		logger.Error("failed to seed catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("catalog seeded", slog.Int("variants", len(variantIDs)))

	if *stockPer > 0 {
		units, err := seedStock(ctx, pool, variantIDs, *stockPer)
		if err != nil {
			logger.Error("failed to seed stock", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("stock seeded", slog.Int("units", units))
	}
}

func loadFeed(path string) ([]seedVariant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var variants []seedVariant
	if err := json.Unmarshal(data, &variants); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return variants, nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, variants []seedVariant) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(variants))

	batch := &pgx.Batch{}
	for _, v := range variants {
		id := uuid.New()
		ids = append(ids, id)

		specs, _ := json.Marshal(v.Specs)
		colors := []byte(`[]`)
		if v.Colors != nil {
			colors, _ = json.Marshal(v.Colors)
		}

		batch.Queue(`
			INSERT INTO vehicle_variants
				(id, make, model, variant, slug, body_type, fuel_type, segment,
				 ex_showroom, on_road, offer_price, specs, colors, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE)
			ON CONFLICT (slug) DO UPDATE SET
				ex_showroom = EXCLUDED.ex_showroom,
				on_road     = EXCLUDED.on_road,
				offer_price = EXCLUDED.offer_price,
				specs       = EXCLUDED.specs,
				colors      = EXCLUDED.colors,
				updated_at  = NOW()`,
			id, v.Make, v.Model, v.Variant, slugify(v.Make, v.Model, v.Variant),
			strings.ToUpper(v.BodyType), strings.ToUpper(v.FuelType), v.Segment,
			mustDecimal(v.ExShowroom), mustDecimal(v.OnRoad), mustDecimal(v.OfferPrice),
			specs, colors)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for range variants {
		if _, err := results.Exec(); err != nil {
			return nil, fmt.Errorf("insert failed: %w", err)
		}
	}

	return ids, nil
}

func seedStock(ctx context.Context, pool *pgxpool.Pool, variantIDs []uuid.UUID, perVariant int) (int, error) {
	dealershipID := uuid.MustParse("a3f1c2d4-0000-4000-8000-000000000001")
	colors := []string{"Pearl Black", "Racing Red", "Matte Blue", "Glacier White"}

	count := 0
	for _, variantID := range variantIDs {
		for i := 0; i < perVariant; i++ {
			unitID := uuid.New()
			chassis := fmt.Sprintf("ME4%s%06d", strings.ToUpper(variantID.String()[:8]), count)

			_, err := pool.Exec(ctx, `
				INSERT INTO stock_units
					(id, variant_id, dealership_id, chassis_number, engine_number, color, status)
				VALUES ($1, $2, $3, $4, $5, $6, 'AVAILABLE')
				ON CONFLICT (chassis_number) DO NOTHING`,
				unitID, variantID, dealershipID, chassis,
				fmt.Sprintf("EN%010d", count), colors[count%len(colors)])
			if err != nil {
				return count, fmt.Errorf("stock insert failed: %w", err)
			}

			_, err = pool.Exec(ctx, `
				INSERT INTO stock_ledger
					(stock_unit_id, qty_delta, balance_after, reason_code, ref_type, ref_id)
				VALUES ($1, 1, 1, 'INWARD', 'SEED', $2)`,
				unitID, uuid.New())
			if err != nil {
				return count, fmt.Errorf("ledger insert failed: %w", err)
			}

			count++
		}
	}

	return count, nil
}

func slugify(parts ...string) string {
	joined := strings.Join(parts, " ")
	joined = strings.ToLower(strings.TrimSpace(joined))
	joined = strings.Join(strings.Fields(joined), "-")
	return strings.ReplaceAll(joined, ".", "")
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// defaultCatalog is a representative slice of the Indian two-wheeler
// market used for local development.
func defaultCatalog() []seedVariant {
	return []seedVariant{
		{
			Make: "HONDA", Model: "Activa 6G", Variant: "STD", BodyType: "SCOOTER",
			FuelType: "PETROL", Segment: "Commuter",
			ExShowroom: "78000", OnRoad: "92000",
			Specs: map[string]any{
				"displacement_cc": 109.5, "front_brake": "drum", "rear_brake": "drum",
				"wheel": "steel", "console": "analog", "seat_height_mm": 780,
				"kerb_weight_kg": 106, "finish": "glossy",
			},
			Colors: []string{"Pearl Black", "Matte Grey"},
		},
		{
			Make: "HONDA", Model: "Shine", Variant: "Disc", BodyType: "MOTORCYCLE",
			FuelType: "PETROL", Segment: "Commuter",
			ExShowroom: "82000", OnRoad: "96000",
			Specs: map[string]any{
				"displacement_cc": 123.9, "front_brake": "disc", "rear_brake": "drum",
				"wheel": "alloy", "console": "analog", "seat_height_mm": 791,
				"kerb_weight_kg": 113, "finish": "glossy",
			},
			Colors: []string{"Racing Red", "Glacier White"},
		},
		{
			Make: "BAJAJ", Model: "Chetak", Variant: "Premium", BodyType: "SCOOTER",
			FuelType: "EV", Segment: "Premium",
			ExShowroom: "125000", OnRoad: "132000", OfferPrice: "119000",
			Specs: map[string]any{
				"front_brake": "disc", "rear_brake": "drum", "wheel": "alloy",
				"console": "digital", "seat_height_mm": 749, "kerb_weight_kg": 134,
				"finish": "metallic",
			},
			Colors: []string{"Indigo Metallic", "Brooklyn Black"},
		},
		{
			Make: "BAJAJ", Model: "Pulsar NS200", Variant: "ABS", BodyType: "MOTORCYCLE",
			FuelType: "PETROL", Segment: "Sports",
			ExShowroom: "142000", OnRoad: "163000",
			Specs: map[string]any{
				"displacement_cc": 199.5, "front_brake": "disc", "rear_brake": "disc",
				"abs": "dual", "wheel": "alloy", "console": "semi_digital",
				"seat_height_mm": 805, "kerb_weight_kg": 158, "finish": "matte",
			},
			Colors: []string{"Burnt Red", "Pewter Grey"},
		},
		{
			Make: "TVS", Model: "Apache RTR 160", Variant: "4V", BodyType: "MOTORCYCLE",
			FuelType: "PETROL", Segment: "Sports",
			ExShowroom: "125000", OnRoad: "143000",
			Specs: map[string]any{
				"displacement_cc": 159.7, "front_brake": "disc", "rear_brake": "drum",
				"abs": "front", "wheel": "alloy", "console": "digital",
				"seat_height_mm": 800, "kerb_weight_kg": 145, "finish": "glossy",
			},
			Colors: []string{"Racing Red", "Metallic Blue"},
		},
		{
			Make: "TVS", Model: "iQube", Variant: "S", BodyType: "SCOOTER",
			FuelType: "EV", Segment: "Commuter",
			ExShowroom: "117000", OnRoad: "123000",
			Specs: map[string]any{
				"front_brake": "disc", "rear_brake": "drum", "wheel": "alloy",
				"console": "digital", "seat_height_mm": 770, "kerb_weight_kg": 117,
				"finish": "glossy",
			},
			Colors: []string{"Titanium Grey", "Shining Red"},
		},
		{
			Make: "HERO", Model: "Splendor Plus", Variant: "i3S", BodyType: "MOTORCYCLE",
			FuelType: "PETROL", Segment: "Commuter",
			ExShowroom: "75000", OnRoad: "86000",
			Specs: map[string]any{
				"displacement_cc": 97.2, "front_brake": "drum", "rear_brake": "drum",
				"wheel": "alloy", "console": "analog", "seat_height_mm": 785,
				"kerb_weight_kg": 112, "finish": "glossy",
			},
			Colors: []string{"Black Purple", "Firefly Golden"},
		},
		{
			Make: "YAMAHA", Model: "MT-15", Variant: "V2", BodyType: "MOTORCYCLE",
			FuelType: "PETROL", Segment: "Sports",
			ExShowroom: "168000", OnRoad: "192000",
			Specs: map[string]any{
				"displacement_cc": 155, "front_brake": "disc", "rear_brake": "disc",
				"abs": "dual", "wheel": "alloy", "console": "digital",
				"seat_height_mm": 810, "kerb_weight_kg": 139, "finish": "matte",
			},
			Colors: []string{"Ice Fluo Vermillion", "Racing Blue"},
		},
		{
			Make: "STUDDS", Model: "Ninja Elite", Variant: "L", BodyType: "ACCESSORY",
			FuelType: "PETROL", Segment: "Accessories",
			ExShowroom: "1500", OnRoad: "1500",
			Specs:  map[string]any{"finish": "matte"},
			Colors: []string{"Matte Black"},
		},
	}
}
