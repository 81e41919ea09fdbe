// internal/pkg/config/config.go
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration, assembled from the
// environment with sane development defaults. Production overrides
// arrive via env vars or the Secrets Manager overlay.
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Asynq          AsynqConfig
	AWS            AWSConfig
	FeedProcessing FeedProcessingConfig
	Catalog        CatalogConfig
	Finance        FinanceConfig
	Security       SecurityConfig
	Server         ServerConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
}

type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementCacheMode string
	EnableQueryLogging bool
	MigrationPath      string
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	MaxConnAge      time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	TTL             time.Duration
}

type AsynqConfig struct {
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	Concurrency          int
	Queues               map[string]int // queue name -> priority
	StrictPriority       bool
	RetryMax             int
	ShutdownTimeout      time.Duration
	HealthCheckInterval  time.Duration
	DelayedTaskCheckTime time.Duration
}

// AWSConfig covers S3 and Secrets Manager. Endpoint and path style
// exist for MinIO in development.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
	UsePathStyle    bool
}

type FeedProcessingConfig struct {
	FeedMaxSizeMB     int
	BatchSize         int
	ProcessingTimeout time.Duration
	TempDir           string
	CleanupInterval   time.Duration
}

type CatalogConfig struct {
	PageSize          int
	MaxPageSize       int
	CacheTTL          time.Duration
	PreferenceTTL     time.Duration
	PreferenceSettle  time.Duration
	DashboardCacheTTL time.Duration
}

// FinanceConfig holds the storefront financing assumptions. The flat
// monthly rate is a product-owned number, not a lender quote.
type FinanceConfig struct {
	FlatMonthlyRate    string
	DefaultDownpayment int64
	DefaultTenure      int
}

type SecurityConfig struct {
	JWTSecret            string
	JWTExpiration        time.Duration
	JWTRefreshExpiration time.Duration
	BcryptCost           int
	RateLimitRequests    int
	RateLimitDuration    time.Duration
	AllowedOrigins       []string
	TrustedProxies       []string
	SecureHeaders        bool
	CSRFProtection       bool
	RequestIDHeader      string
}

type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GracefulTimeout   time.Duration
	EnablePprof       bool
	EnableMetrics     bool
	EnableHealthCheck bool
	TLSEnabled        bool
	TLSCertFile       string
	TLSKeyFile        string
}

// Load reads configuration from the environment. In development a .env
// file is honored first, and development defaults fill every gap; in
// production the Validate checks refuse the unsafe ones.
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	isDev := env == "development" || env == "local"

	if isDev {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded successfully")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	applyDefaults(v, env, isDev)

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: env,
			Version:     v.GetString("APP_VERSION"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			LogFormat:   v.GetString("LOG_FORMAT"),
			Debug:       v.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetString("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Name:               v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSL_MODE"),
			MaxConnections:     v.GetInt32("DB_MAX_CONNECTIONS"),
			MinConnections:     v.GetInt32("DB_MIN_CONNECTIONS"),
			MaxConnLifetime:    v.GetDuration("DB_CONNECTION_LIFETIME"),
			MaxConnIdleTime:    v.GetDuration("DB_IDLE_TIME"),
			HealthCheckPeriod:  v.GetDuration("DB_HEALTH_CHECK_PERIOD"),
			ConnectTimeout:     v.GetDuration("DB_CONNECT_TIMEOUT"),
			StatementCacheMode: v.GetString("DB_STATEMENT_CACHE_MODE"),
			EnableQueryLogging: v.GetBool("DB_QUERY_LOGGING"),
			MigrationPath:      v.GetString("DB_MIGRATION_PATH"),
		},
		Redis: RedisConfig{
			Host:            v.GetString("REDIS_HOST"),
			Port:            v.GetString("REDIS_PORT"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			MaxRetries:      v.GetInt("REDIS_MAX_RETRIES"),
			MinRetryBackoff: v.GetDuration("REDIS_MIN_RETRY_BACKOFF"),
			MaxRetryBackoff: v.GetDuration("REDIS_MAX_RETRY_BACKOFF"),
			DialTimeout:     v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:     v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:        v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns:    v.GetInt("REDIS_MIN_IDLE_CONNS"),
			MaxConnAge:      v.GetDuration("REDIS_MAX_CONN_AGE"),
			PoolTimeout:     v.GetDuration("REDIS_POOL_TIMEOUT"),
			IdleTimeout:     v.GetDuration("REDIS_IDLE_TIMEOUT"),
			TTL:             v.GetDuration("REDIS_TTL"),
		},
		Asynq: AsynqConfig{
			RedisAddr:            v.GetString("REDIS_HOST") + ":" + v.GetString("REDIS_PORT"),
			RedisPassword:        v.GetString("REDIS_PASSWORD"),
			RedisDB:              v.GetInt("ASYNQ_REDIS_DB"),
			Concurrency:          v.GetInt("ASYNQ_CONCURRENCY"),
			Queues:               parseQueues(v.GetString("ASYNQ_QUEUES")),
			StrictPriority:       v.GetBool("ASYNQ_STRICT_PRIORITY"),
			RetryMax:             v.GetInt("ASYNQ_RETRY_MAX"),
			ShutdownTimeout:      v.GetDuration("ASYNQ_SHUTDOWN_TIMEOUT"),
			HealthCheckInterval:  v.GetDuration("ASYNQ_HEALTH_CHECK_INTERVAL"),
			DelayedTaskCheckTime: v.GetDuration("ASYNQ_DELAYED_TASK_CHECK"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("AWS_REGION"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			S3Bucket:        v.GetString("AWS_S3_BUCKET"),
			S3Endpoint:      v.GetString("AWS_S3_ENDPOINT"),
			UsePathStyle:    v.GetBool("AWS_S3_PATH_STYLE"),
		},
		FeedProcessing: FeedProcessingConfig{
			FeedMaxSizeMB:     v.GetInt("FEED_MAX_SIZE_MB"),
			BatchSize:         v.GetInt("FEED_BATCH_SIZE"),
			ProcessingTimeout: v.GetDuration("PROCESSING_TIMEOUT"),
			TempDir:           v.GetString("TEMP_DIR"),
			CleanupInterval:   v.GetDuration("CLEANUP_INTERVAL"),
		},
		Catalog: CatalogConfig{
			PageSize:          v.GetInt("CATALOG_PAGE_SIZE"),
			MaxPageSize:       v.GetInt("CATALOG_MAX_PAGE_SIZE"),
			CacheTTL:          v.GetDuration("CATALOG_CACHE_TTL"),
			PreferenceTTL:     v.GetDuration("PREFERENCE_TTL"),
			PreferenceSettle:  v.GetDuration("PREFERENCE_SETTLE"),
			DashboardCacheTTL: v.GetDuration("DASHBOARD_CACHE_TTL"),
		},
		Finance: FinanceConfig{
			FlatMonthlyRate:    v.GetString("FINANCE_FLAT_MONTHLY_RATE"),
			DefaultDownpayment: v.GetInt64("FINANCE_DEFAULT_DOWNPAYMENT"),
			DefaultTenure:      v.GetInt("FINANCE_DEFAULT_TENURE"),
		},
		Security: SecurityConfig{
			JWTSecret:            v.GetString("JWT_SECRET"),
			JWTExpiration:        v.GetDuration("JWT_EXPIRATION"),
			JWTRefreshExpiration: v.GetDuration("JWT_REFRESH_EXPIRATION"),
			BcryptCost:           v.GetInt("BCRYPT_COST"),
			RateLimitRequests:    v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitDuration:    v.GetDuration("RATE_LIMIT_DURATION"),
			AllowedOrigins:       splitCSV(v.GetString("ALLOWED_ORIGINS")),
			TrustedProxies:       splitCSV(v.GetString("TRUSTED_PROXIES")),
			SecureHeaders:        v.GetBool("SECURE_HEADERS"),
			CSRFProtection:       v.GetBool("CSRF_PROTECTION"),
			RequestIDHeader:      v.GetString("REQUEST_ID_HEADER"),
		},
		Server: ServerConfig{
			Host:              v.GetString("SERVER_HOST"),
			Port:              v.GetString("SERVER_PORT"),
			ReadTimeout:       v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:      v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:       v.GetDuration("SERVER_IDLE_TIMEOUT"),
			MaxHeaderBytes:    v.GetInt("SERVER_MAX_HEADER_BYTES"),
			GracefulTimeout:   v.GetDuration("SERVER_GRACEFUL_TIMEOUT"),
			EnablePprof:       v.GetBool("ENABLE_PPROF"),
			EnableMetrics:     v.GetBool("ENABLE_METRICS"),
			EnableHealthCheck: v.GetBool("ENABLE_HEALTH_CHECK"),
			TLSEnabled:        v.GetBool("TLS_ENABLED"),
			TLSCertFile:       v.GetString("TLS_CERT_FILE"),
			TLSKeyFile:        v.GetString("TLS_KEY_FILE"),
		},
	}

	if secretName := os.Getenv("SECRETS_MANAGER_NAME"); secretName != "" {
		if err := overlaySecrets(context.Background(), cfg, secretName, logger); err != nil {
			if cfg.IsProduction() {
				return nil, fmt.Errorf("secrets overlay failed: %w", err)
			}
			logger.Warn("secrets overlay failed, continuing with environment values",
				slog.String("error", err.Error()))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper, env string, isDev bool) {
	defaults := map[string]interface{}{
		"APP_NAME":    "marketplace-api",
		"APP_VERSION": "dev",
		"LOG_LEVEL":   "debug",
		"LOG_FORMAT":  "json",
		"APP_DEBUG":   isDev,

		"DB_HOST":                "localhost",
		"DB_PORT":                "5432",
		"DB_USER":                "bookmybike",
		"DB_PASSWORD":            "bookmybike_dev_2026",
		"DB_NAME":                "bookmybike_marketplace",
		"DB_SSL_MODE":            "disable",
		"DB_MAX_CONNECTIONS":     25,
		"DB_MIN_CONNECTIONS":     5,
		"DB_CONNECTION_LIFETIME": time.Hour,
		"DB_IDLE_TIME":           30 * time.Minute,
		"DB_HEALTH_CHECK_PERIOD": time.Minute,
		"DB_CONNECT_TIMEOUT":     10 * time.Second,
		"DB_STATEMENT_CACHE_MODE": "describe",
		"DB_QUERY_LOGGING":        isDev,
		"DB_MIGRATION_PATH":       "migrations",

		"REDIS_HOST":              "localhost",
		"REDIS_PORT":              "6379",
		"REDIS_PASSWORD":          "",
		"REDIS_DB":                0,
		"REDIS_MAX_RETRIES":       3,
		"REDIS_MIN_RETRY_BACKOFF": 8 * time.Millisecond,
		"REDIS_MAX_RETRY_BACKOFF": 512 * time.Millisecond,
		"REDIS_DIAL_TIMEOUT":      5 * time.Second,
		"REDIS_READ_TIMEOUT":      3 * time.Second,
		"REDIS_WRITE_TIMEOUT":     3 * time.Second,
		"REDIS_POOL_SIZE":         10,
		"REDIS_MIN_IDLE_CONNS":    2,
		"REDIS_MAX_CONN_AGE":      time.Duration(0),
		"REDIS_POOL_TIMEOUT":      4 * time.Second,
		"REDIS_IDLE_TIMEOUT":      5 * time.Minute,
		"REDIS_TTL":               time.Hour,

		"ASYNQ_REDIS_DB":              0,
		"ASYNQ_CONCURRENCY":           10,
		"ASYNQ_QUEUES":                "critical:6,default:3,low:1",
		"ASYNQ_STRICT_PRIORITY":       false,
		"ASYNQ_RETRY_MAX":             3,
		"ASYNQ_SHUTDOWN_TIMEOUT":      30 * time.Second,
		"ASYNQ_HEALTH_CHECK_INTERVAL": 30 * time.Second,
		"ASYNQ_DELAYED_TASK_CHECK":    5 * time.Second,

		"AWS_REGION":            "us-east-1",
		"AWS_ACCESS_KEY_ID":     "minioadmin",
		"AWS_SECRET_ACCESS_KEY": "minioadmin123",
		"AWS_S3_BUCKET":         "bookmybike-media",
		"AWS_S3_ENDPOINT":       "",
		"AWS_S3_PATH_STYLE":     isDev,

		"FEED_MAX_SIZE_MB":   50,
		"FEED_BATCH_SIZE":    500,
		"PROCESSING_TIMEOUT": 5 * time.Minute,
		"TEMP_DIR":           "/tmp",
		"CLEANUP_INTERVAL":   time.Hour,

		"CATALOG_PAGE_SIZE":     20,
		"CATALOG_MAX_PAGE_SIZE": 100,
		"CATALOG_CACHE_TTL":     5 * time.Minute,
		"PREFERENCE_TTL":        30 * 24 * time.Hour,
		"PREFERENCE_SETTLE":     400 * time.Millisecond,
		"DASHBOARD_CACHE_TTL":   time.Minute,

		"FINANCE_FLAT_MONTHLY_RATE":   "0.035",
		"FINANCE_DEFAULT_DOWNPAYMENT": 0,
		"FINANCE_DEFAULT_TENURE":      36,

		"JWT_SECRET":             devFallbackSecret(env),
		"JWT_EXPIRATION":         24 * time.Hour,
		"JWT_REFRESH_EXPIRATION": 7 * 24 * time.Hour,
		"BCRYPT_COST":            10,
		"RATE_LIMIT_REQUESTS":    100,
		"RATE_LIMIT_DURATION":    time.Minute,
		"ALLOWED_ORIGINS":        "*",
		"TRUSTED_PROXIES":        "",
		"SECURE_HEADERS":         env == "production",
		"CSRF_PROTECTION":        env == "production",
		"REQUEST_ID_HEADER":      "X-Request-ID",

		"SERVER_HOST":             "0.0.0.0",
		"SERVER_PORT":             "8080",
		"SERVER_READ_TIMEOUT":     15 * time.Second,
		"SERVER_WRITE_TIMEOUT":    15 * time.Second,
		"SERVER_IDLE_TIMEOUT":     60 * time.Second,
		"SERVER_MAX_HEADER_BYTES": 1 << 20,
		"SERVER_GRACEFUL_TIMEOUT": 30 * time.Second,
		"ENABLE_PPROF":            isDev,
		"ENABLE_METRICS":          true,
		"ENABLE_HEALTH_CHECK":     true,
		"TLS_ENABLED":             false,
		"TLS_CERT_FILE":           "",
		"TLS_KEY_FILE":            "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate rejects configurations that cannot run. The production block
// additionally refuses settings that are acceptable only in development.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.MaxConnections < c.Database.MinConnections {
		return fmt.Errorf("max connections must be >= min connections")
	}
	if c.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("rate limit requests must be positive")
	}
	if c.Catalog.PageSize <= 0 || c.Catalog.PageSize > c.Catalog.MaxPageSize {
		return fmt.Errorf("catalog page size must be within (0, max page size]")
	}
	if _, err := strconv.ParseFloat(c.Finance.FlatMonthlyRate, 64); err != nil {
		return fmt.Errorf("finance flat monthly rate must be numeric: %w", err)
	}
	if c.Finance.DefaultDownpayment < 0 {
		return fmt.Errorf("default downpayment cannot be negative")
	}

	if c.IsProduction() {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("JWT secret must be set in production")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database SSL must be enabled in production")
		}
		for _, origin := range c.Security.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("wildcard origin not allowed in production")
			}
		}
		if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
			return fmt.Errorf("TLS cert and key files are required when TLS is enabled")
		}
	}

	return nil
}

// GetDatabaseURL formats the postgres connection string.
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User, c.Database.Password,
		c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.SSLMode)
}

func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseQueues reads "name:priority" pairs, e.g. "critical:6,default:3".
func parseQueues(spec string) map[string]int {
	queues := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		name, prio, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(prio)); err == nil {
			queues[strings.TrimSpace(name)] = n
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}

// devFallbackSecret keeps local setups running while leaving production
// with no secret at all, which Validate then rejects.
func devFallbackSecret(env string) string {
	if env == "production" {
		return ""
	}
	return "development-secret-change-in-production"
}
