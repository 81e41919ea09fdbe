// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/adapters/storage"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/internal/core/services"
	"github.com/bookmybike/marketplace-be/internal/handlers"
	"github.com/bookmybike/marketplace-be/internal/handlers/middleware"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
	"github.com/bookmybike/marketplace-be/internal/pkg/logger"
	"github.com/bookmybike/marketplace-be/internal/workers"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting bookmy.bike marketplace API",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	slogger.Info("loading configuration")
	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	deps, err := initializeDependencies(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	if cfg.App.Environment != "production" {
		// Production schemas move through a deploy step, not app startup.
		if err := runMigrations(ctx, cfg, slogger.Logger); err != nil {
			slogger.Error("failed to run migrations", slog.String("error", err.Error()))
		}
	}

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		// Flush pending debounced preference writes before closing stores
		if deps.preferenceService != nil {
			deps.preferenceService.Close()
		}

		if deps.asynqClient != nil {
			if err := deps.asynqClient.Close(); err != nil {
				slogger.Error("failed to close Asynq client", slog.String("error", err.Error()))
			}
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies collects everything the HTTP layer needs, wired once at
// startup.
type dependencies struct {
	database           *db.Database
	redisClient        *redis.Client
	redisCache         ports.CacheRepository
	asynqClient        *asynq.Client
	asynqInspector     *asynq.Inspector
	catalogService     *services.CatalogService
	stockService       *services.StockService
	preferenceService  *services.PreferenceService
	catalogHandler     *handlers.CatalogHandler
	stockHandler       *handlers.StockHandler
	preferencesHandler *handlers.PreferencesHandler
	healthHandler      *handlers.HealthHandler
	dashboardHandler   *handlers.DashboardHandler
	exportHandler      *handlers.ExportHandler
	importHandler      *handlers.ImportHandler
	mediaHandler       *handlers.MediaHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	logger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisOpts := &redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		ConnMaxLifetime: cfg.Redis.MaxConnAge,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.IdleTimeout,
	}

	redisClient := redis.NewClient(redisOpts)

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	deps.redisClient = redisClient

	deps.redisCache = redis_a.NewCache(redisClient, cfg.Catalog.CacheTTL, logger)

	logger.Info("initializing Asynq client")

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	asynqClient := asynq.NewClient(asynqRedisOpt)
	deps.asynqClient = asynqClient

	asynqInspector := asynq.NewInspector(asynqRedisOpt)
	deps.asynqInspector = asynqInspector

	// Repositories
	catalogRepo := db.NewCatalogRepository(database, logger)
	stockRepo := db.NewStockRepository(database, logger)
	preferenceStore := redis_a.NewPreferenceStore(redisClient, cfg.Catalog.PreferenceTTL, logger)

	// Services
	flatRate, err := decimal.NewFromString(cfg.Finance.FlatMonthlyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid flat monthly rate %q: %w", cfg.Finance.FlatMonthlyRate, err)
	}
	finance := services.FinanceOptions{
		FlatMonthlyRate:    flatRate,
		DefaultDownpayment: decimal.NewFromInt(cfg.Finance.DefaultDownpayment),
		DefaultTenure:      cfg.Finance.DefaultTenure,
	}

	deps.catalogService = services.NewCatalogService(catalogRepo, deps.redisCache, finance, logger)
	deps.stockService = services.NewStockService(stockRepo, workers.NewSoldQueue(asynqClient, logger), logger)
	deps.preferenceService = services.NewPreferenceService(preferenceStore, cfg.Catalog.PreferenceSettle, logger)

	// Handlers
	deps.catalogHandler = handlers.NewCatalogHandler(deps.catalogService, logger)
	deps.stockHandler = handlers.NewStockHandler(deps.stockService, logger)
	deps.preferencesHandler = handlers.NewPreferencesHandler(deps.preferenceService, logger)
	deps.healthHandler = handlers.NewHealthHandler(
		database,
		redisClient,
		asynqInspector,
		cfg,
		logger,
	)
	deps.dashboardHandler = handlers.NewDashboardHandler(catalogRepo, stockRepo, deps.redisCache, cfg.Catalog.DashboardCacheTTL, logger)
	deps.exportHandler = handlers.NewExportHandler(catalogRepo, deps.redisCache, logger)

	maxFileSize := int64(cfg.FeedProcessing.FeedMaxSizeMB * 1024 * 1024)
	deps.importHandler = handlers.NewImportHandler(asynqClient, deps.redisCache, logger, maxFileSize, cfg.FeedProcessing.TempDir)
	deps.mediaHandler = handlers.NewMediaHandler(setupMediaStorage(ctx, cfg, logger), deps.catalogService, logger, maxFileSize)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// setupMediaStorage builds the object storage client variant images go
// to. Without a bucket, or when S3 is unreachable, images land on local
// disk so dev environments keep working.
func setupMediaStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) storage.StorageClient {
	localPath := filepath.Join(cfg.FeedProcessing.TempDir, "media")

	if cfg.AWS.S3Bucket == "" {
		return storage.NewLocalStorage(localPath, logger)
	}

	s3Store, err := storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
	if err != nil {
		logger.Warn("object storage unavailable, storing media locally",
			slog.String("bucket", cfg.AWS.S3Bucket),
			slog.String("error", err.Error()))
		return storage.NewLocalStorage(localPath, logger)
	}

	return s3Store
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, l *logger.Logger) *http.Server {
	mux := http.NewServeMux()

	// Middleware chain, innermost first
	var handler http.Handler = mux

	if cfg.App.Environment != "test" {
		handler = middleware.RequestID(handler)
		handler = middleware.Logger(l)(handler)
		handler = middleware.Recovery(l.Logger)(handler)
	}

	handler = middleware.Compression(handler)

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	registerRoutes(mux, deps, cfg)

	server := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(l.Handler(), slog.LevelError),
	}

	return server
}

func registerRoutes(mux *http.ServeMux, deps *dependencies, cfg *config.Config) {
	apiV1 := "/api/v1"

	if cfg.Server.EnableHealthCheck {
		mux.HandleFunc("GET /health", deps.healthHandler.Health)
		mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
		mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)
	}

	// Catalog browsing and management
	mux.HandleFunc("GET "+apiV1+"/catalog", deps.catalogHandler.Browse)
	mux.HandleFunc("GET "+apiV1+"/catalog/slug/{slug}", deps.catalogHandler.GetVariantBySlug)
	mux.HandleFunc("GET "+apiV1+"/catalog/{id}", deps.catalogHandler.GetVariant)
	mux.HandleFunc("POST "+apiV1+"/catalog", deps.catalogHandler.CreateVariant)
	mux.HandleFunc("PUT "+apiV1+"/catalog/{id}", deps.catalogHandler.UpdateVariant)
	mux.HandleFunc("DELETE "+apiV1+"/catalog/{id}", deps.catalogHandler.DeleteVariant)
	mux.HandleFunc("POST "+apiV1+"/catalog/{id}/images", deps.mediaHandler.UploadImage)

	// Dealership stock
	mux.HandleFunc("POST "+apiV1+"/stock", deps.stockHandler.Inward)
	mux.HandleFunc("GET "+apiV1+"/stock", deps.stockHandler.ListUnits)
	mux.HandleFunc("GET "+apiV1+"/stock/{id}", deps.stockHandler.GetUnit)
	mux.HandleFunc("POST "+apiV1+"/stock/{id}/transition", deps.stockHandler.Transition)

	// Session filter preferences
	mux.HandleFunc("GET "+apiV1+"/preferences/{session}", deps.preferencesHandler.Get)
	mux.HandleFunc("PUT "+apiV1+"/preferences/{session}", deps.preferencesHandler.Save)
	mux.HandleFunc("DELETE "+apiV1+"/preferences/{session}", deps.preferencesHandler.Clear)
	mux.HandleFunc("GET "+apiV1+"/preferences/{session}/events", deps.preferencesHandler.Subscribe)

	// Feed import
	mux.HandleFunc("POST "+apiV1+"/import/feed", deps.importHandler.ImportFeed)
	mux.HandleFunc("POST "+apiV1+"/import/excel", deps.importHandler.ImportExcel)
	mux.HandleFunc("POST "+apiV1+"/import/batch", deps.importHandler.ImportBatch)
	mux.HandleFunc("GET "+apiV1+"/import/status/{jobId}", deps.importHandler.ImportStatus)

	// Export
	mux.HandleFunc("GET "+apiV1+"/export/excel", deps.exportHandler.ExportExcel)
	mux.HandleFunc("GET "+apiV1+"/export/json", deps.exportHandler.ExportJSON)

	// Dealership dashboard
	mux.HandleFunc("GET "+apiV1+"/dashboard", deps.dashboardHandler.GetDashboard)
	mux.HandleFunc("GET "+apiV1+"/dashboard/movements", deps.dashboardHandler.GetMovements)

	// pprof endpoints (development only)
	if cfg.Server.EnablePprof && cfg.IsDevelopment() {
		mux.HandleFunc("GET /debug/pprof/", http.HandlerFunc(http.DefaultServeMux.ServeHTTP))
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, logger, 3)
}
