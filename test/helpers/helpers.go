// test/helpers/helpers.go
package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
)

// TestDB bundles a dockerized Postgres with the pool connected to it.
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis bundles a miniredis server with a client pointed at it.
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger is quiet unless tests run verbose.
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB starts a disposable Postgres container, connects, and
// applies the migrations. Requires a reachable Docker daemon.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

		resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_marketplace",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

		t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

		dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_marketplace",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	// Containers take a moment to accept connections.
	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")

		ctx := context.Background()
	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		SourcePath: "../../migrations",
		TableName:  "schema_migrations",
		SchemaName: "public",
	}

	err = db.RunMigrationsWithRetry(ctx, migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis starts an in-process miniredis, torn down with the test.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// LoadTestConfig builds a config suitable for handler and service
// tests. The preference settle window is short so debounce tests finish
// quickly.
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_marketplace",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		FeedProcessing: config.FeedProcessingConfig{
			FeedMaxSizeMB:     50,
			BatchSize:         100,
			ProcessingTimeout: 5 * time.Minute,
			TempDir:           "/tmp",
		},
		Catalog: config.CatalogConfig{
			PageSize:          20,
			MaxPageSize:       100,
			CacheTTL:          5 * time.Minute,
			PreferenceTTL:     24 * time.Hour,
			PreferenceSettle:  50 * time.Millisecond,
			DashboardCacheTTL: time.Minute,
		},
		Finance: config.FinanceConfig{
			FlatMonthlyRate:    "0.035",
			DefaultDownpayment: 0,
			DefaultTenure:      36,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret",
			JWTExpiration:     24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestVariant returns a plausible scooter variant. Overrides
// mutate it before return.
func CreateTestVariant(overrides ...func(*domain.VehicleVariant)) *domain.VehicleVariant {
	variant := &domain.VehicleVariant{
		ID:       uuid.New(),
		Make:     "HONDA",
		Model:    "Activa",
		Variant:  "6G STD",
		Slug:     "honda-activa-6g-std",
		BodyType: domain.BodyScooter,
		FuelType: domain.FuelPetrol,
		Segment:  domain.DefaultSegment,
		Price: domain.Price{
			ExShowroom: decimal.NewFromInt(78000),
			OnRoad:     decimal.NewFromInt(92000),
		},
		Specs: domain.Specs{
			DisplacementCC: 109.5,
			FrontBrake:     "drum",
			RearBrake:      "drum",
			Wheel:          "steel",
			Console:        "analog",
			SeatHeightMM:   780,
			KerbWeightKG:   106,
		},
		Colors: []domain.ColorOption{
			{HexCode: "#1B1B1B", Name: "Pearl Black"},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(variant)
	}

	return variant
}

// CreateTestVariants fabricates count variants across makes and body
// types with stepped pricing, enough spread for filter tests.
func CreateTestVariants(count int) []domain.VehicleVariant {
	variants := make([]domain.VehicleVariant, count)

	makes := []string{"HONDA", "BAJAJ", "TVS", "HERO", "YAMAHA"}
	bodyTypes := []domain.BodyType{
		domain.BodyScooter,
		domain.BodyMotorcycle,
	}

	for i := 0; i < count; i++ {
		variants[i] = *CreateTestVariant(func(v *domain.VehicleVariant) {
			v.Make = makes[i%len(makes)]
			v.Model = fmt.Sprintf("Model %d", i+1)
			v.Slug = fmt.Sprintf("make-%d-model-%d", i%len(makes), i+1)
			v.BodyType = bodyTypes[i%len(bodyTypes)]
			v.Price.ExShowroom = decimal.NewFromInt(int64(60000 + i*5000))
			v.Price.OnRoad = decimal.NewFromInt(int64(72000 + i*5000))
		})
	}

	return variants
}

// CreateTestStockUnit returns an available unit with valid-looking
// chassis and engine numbers.
func CreateTestStockUnit(overrides ...func(*domain.StockUnit)) *domain.StockUnit {
	unit := &domain.StockUnit{
		ID:            uuid.New(),
		VariantID:     uuid.New(),
		DealershipID:  uuid.New(),
		ChassisNumber: "ME4JF5030RT123456",
		EngineNumber:  "JF50ET1234567",
		Color:         "Pearl Black",
		Status:        domain.StockAvailable,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	for _, override := range overrides {
		override(unit)
	}

	return unit
}

// CompareVariants asserts field equality, treating prices as decimals
// rather than requiring identical representations.
func CompareVariants(t *testing.T, expected, actual *domain.VehicleVariant) {
	t.Helper()

	require.Equal(t, expected.Make, actual.Make)
	require.Equal(t, expected.Model, actual.Model)
	require.Equal(t, expected.Variant, actual.Variant)
	require.Equal(t, expected.Slug, actual.Slug)
	require.Equal(t, expected.BodyType, actual.BodyType)
	require.Equal(t, expected.FuelType, actual.FuelType)
	require.Equal(t, expected.Segment, actual.Segment)
	require.True(t, expected.Price.ExShowroom.Equal(actual.Price.ExShowroom))
	require.True(t, expected.Price.OnRoad.Equal(actual.Price.OnRoad))
	require.True(t, expected.Price.OfferPrice.Equal(actual.Price.OfferPrice))
}

// LoadFixture reads a file from test/fixtures.
func LoadFixture(t *testing.T, filename string) []byte {
	t.Helper()

	path := fmt.Sprintf("../../test/fixtures/%s", filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to load fixture: %s", filename)

	return data
}

// AssertEventuallyWithTimeout polls condition every 100ms until it
// holds or the timeout lapses.
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables empties the domain tables between test cases,
// children first.
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	tables := []string{
		"stock_ledger",
		"stock_units",
		"vehicle_variants",
	}

	for _, table := range tables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "Failed to truncate table: %s", table)
	}
}

// SeedTestVariants inserts variants directly, bypassing the service
// layer.
func SeedTestVariants(t *testing.T, db *pgxpool.Pool, variants []domain.VehicleVariant) {
	t.Helper()

	ctx := context.Background()

	for _, v := range variants {
		query := `
			INSERT INTO vehicle_variants (
				id, make, model, variant, slug, body_type, fuel_type, segment,
				ex_showroom, on_road, offer_price,
				specs, colors, is_active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '{}', '[]', $12, $13, $14)
		`

		_, err := db.Exec(ctx, query,
			v.ID, v.Make, v.Model, v.Variant, v.Slug, v.BodyType, v.FuelType, v.Segment,
			v.Price.ExShowroom, v.Price.OnRoad, v.Price.OfferPrice,
			v.IsActive, v.CreatedAt, v.UpdatedAt,
		)
		require.NoError(t, err, "Failed to seed test data")
	}
}

// CreateTempFile writes content to a temp file removed at test end.
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp("", fmt.Sprintf("test-*%s", extension))
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.Write(content)
	require.NoError(t, err, "Failed to write to temp file")

	file.Close()

	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	return file.Name()
}
