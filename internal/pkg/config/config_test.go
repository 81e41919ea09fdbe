package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, "marketplace-api", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, int32(25), cfg.Database.MaxConnections)
	assert.Equal(t, "localhost:6379", cfg.Asynq.RedisAddr)
	assert.Equal(t, map[string]int{"critical": 6, "default": 3, "low": 1}, cfg.Asynq.Queues)
	assert.Equal(t, "0.035", cfg.Finance.FlatMonthlyRate)
	assert.Equal(t, 36, cfg.Finance.DefaultTenure)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 400*time.Millisecond, cfg.Catalog.PreferenceSettle)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("DB_HOST", "pg.staging.internal")
	t.Setenv("DB_MAX_CONNECTIONS", "50")
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	t.Setenv("ASYNQ_QUEUES", "feeds:5,default:1")
	t.Setenv("ALLOWED_ORIGINS", "https://bookmy.bike, https://admin.bookmy.bike")

	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, "pg.staging.internal", cfg.Database.Host)
	assert.Equal(t, int32(50), cfg.Database.MaxConnections)
	assert.Equal(t, 90*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, map[string]int{"feeds": 5, "default": 1}, cfg.Asynq.Queues)
	assert.Equal(t, []string{"https://bookmy.bike", "https://admin.bookmy.bike"}, cfg.Security.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "development"},
			Database: DatabaseConfig{Host: "localhost", Name: "bmb", MaxConnections: 10, MinConnections: 2},
			Server:   ServerConfig{Port: "8080"},
			Security: SecurityConfig{RateLimitRequests: 100, JWTSecret: "dev"},
			Catalog:  CatalogConfig{PageSize: 20, MaxPageSize: 100},
			Finance:  FinanceConfig{FlatMonthlyRate: "0.035"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid_development_config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing_database_host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database host",
		},
		{
			name:    "pool_bounds_inverted",
			mutate:  func(c *Config) { c.Database.MinConnections = 20 },
			wantErr: "max connections",
		},
		{
			name:    "page_size_exceeds_max",
			mutate:  func(c *Config) { c.Catalog.PageSize = 500 },
			wantErr: "page size",
		},
		{
			name:    "non_numeric_finance_rate",
			mutate:  func(c *Config) { c.Finance.FlatMonthlyRate = "three percent" },
			wantErr: "flat monthly rate",
		},
		{
			name:    "negative_downpayment",
			mutate:  func(c *Config) { c.Finance.DefaultDownpayment = -1 },
			wantErr: "downpayment",
		},
		{
			name: "production_requires_ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
				c.Security.AllowedOrigins = []string{"https://bookmy.bike"}
				c.Database.SSLMode = "disable"
			},
			wantErr: "SSL",
		},
		{
			name: "production_rejects_short_jwt_secret",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.SSLMode = "require"
				c.Security.JWTSecret = "short"
			},
			wantErr: "32 characters",
		},
		{
			name: "production_rejects_wildcard_origin",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Database.SSLMode = "require"
				c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
				c.Security.AllowedOrigins = []string{"*"}
			},
			wantErr: "wildcard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseQueues(t *testing.T) {
	assert.Equal(t, map[string]int{"critical": 6, "default": 3},
		parseQueues("critical:6,default:3"))
	assert.Equal(t, map[string]int{"default": 1},
		parseQueues(""), "empty spec falls back to default queue")
	assert.Equal(t, map[string]int{"feeds": 2},
		parseQueues("feeds:2,broken,also:bad"), "malformed pairs are skipped")
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "localhost", Port: "5432", User: "bmb", Password: "pw",
		Name: "bookmybike_marketplace", SSLMode: "disable",
	}}
	assert.Equal(t,
		"postgresql://bmb:pw@localhost:5432/bookmybike_marketplace?sslmode=disable",
		cfg.GetDatabaseURL())
}
