// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/adapters/storage"
	"github.com/bookmybike/marketplace-be/internal/core/services"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
	"github.com/bookmybike/marketplace-be/internal/pkg/logger"
	"github.com/bookmybike/marketplace-be/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()
	database, err := initDatabase(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	cache := redis_a.NewCache(redisClient, cfg.Catalog.CacheTTL, slogger.Logger)

	// Repositories and services
	catalogRepo := db.NewCatalogRepository(database, slogger.Logger)

	flatRate, err := decimal.NewFromString(cfg.Finance.FlatMonthlyRate)
	if err != nil {
		slogger.Error("invalid flat monthly rate", slog.String("error", err.Error()))
		os.Exit(1)
	}
	catalogService := services.NewCatalogService(catalogRepo, cache, services.FinanceOptions{
		FlatMonthlyRate:    flatRate,
		DefaultDownpayment: decimal.NewFromInt(cfg.Finance.DefaultDownpayment),
		DefaultTenure:      cfg.Finance.DefaultTenure,
	}, slogger.Logger)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		asynq.Config{
			Concurrency:     cfg.Asynq.Concurrency,
			Queues:          cfg.Asynq.Queues,
			StrictPriority:  cfg.Asynq.StrictPriority,
			ErrorHandler:    asynq.ErrorHandlerFunc(handleError),
			RetryDelayFunc:  exponentialBackoff,
			ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
			HealthCheckFunc: healthCheck,
			Logger:          newAsynqLogger(slogger.Logger),
		},
	)

	// Create task handlers
	mux := asynq.NewServeMux()

	// Catalog feed import handlers
	feedProcessor := workers.NewFeedProcessor(catalogService, cache, slogger.Logger)
	if archive := setupFeedArchive(ctx, cfg, slogger.Logger); archive != nil {
		feedProcessor.SetArchive(archive)
	}
	mux.HandleFunc(workers.TypeFeedProcess, feedProcessor.ProcessFeed)
	mux.HandleFunc(workers.TypeExcelFeed, feedProcessor.ProcessExcelFeed)

	// Sold notification and email handlers
	notificationProcessor := workers.NewNotificationProcessor(cfg, slogger.Logger)
	mux.HandleFunc(workers.TypeSoldNotify, notificationProcessor.ProcessSold)
	mux.HandleFunc(workers.TypeSendEmail, notificationProcessor.SendEmail)

	// Dashboard cache refresh handler
	dashboardProcessor := workers.NewDashboardProcessor(cache, slogger.Logger)
	mux.HandleFunc(workers.TypeRefreshDashboard, dashboardProcessor.RefreshDashboard)

	// Cleanup handlers
	cleanupProcessor := workers.NewCleanupProcessor(database, cfg, slogger.Logger)
	mux.HandleFunc(workers.TypeCleanupOldData, cleanupProcessor.CleanupOldData)
	mux.HandleFunc(workers.TypeCleanupTempFiles, cleanupProcessor.CleanupTempFiles)

	// Periodic maintenance tasks
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		&asynq.SchedulerOpts{Logger: newAsynqLogger(slogger.Logger)},
	)
	registerPeriodicTasks(scheduler, slogger.Logger)

	// Handle shutdown gracefully
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			slogger.Error("failed to run scheduler", slog.String("error", err.Error()))
		}
	}()

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

func registerPeriodicTasks(scheduler *asynq.Scheduler, logger *slog.Logger) {
	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{"*/5 * * * *", asynq.NewTask(workers.TypeRefreshDashboard, nil)},
		{"0 3 * * *", asynq.NewTask(workers.TypeCleanupOldData, nil)},
		{"0 * * * *", asynq.NewTask(workers.TypeCleanupTempFiles, nil)},
	}

	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, e.task, asynq.Queue("low")); err != nil {
			logger.Error("failed to register periodic task",
				slog.String("type", e.task.Type()),
				slog.String("error", err.Error()))
		}
	}
}

// setupFeedArchive builds the object storage client processed feeds are
// archived to. S3 failures degrade to local archival rather than
// blocking the worker.
func setupFeedArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) workers.FeedArchiver {
	if cfg.AWS.S3Bucket == "" {
		return nil
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
		logger.Warn("object storage unavailable, archiving feeds locally",
			slog.String("bucket", cfg.AWS.S3Bucket),
			slog.String("error", err.Error()))
		return storage.NewLocalStorage(filepath.Join(cfg.FeedProcessing.TempDir, "archive"), logger)
	}

	return s3Store
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     10, // Fewer connections for worker
		MinConnections:     2,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	return db.NewDatabase(ctx, dbConfig, logger)
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	slog.ErrorContext(ctx, "task processing failed",
		slog.String("type", task.Type()),
		slog.String("payload", string(task.Payload())),
		slog.String("error", err.Error()))
}

func exponentialBackoff(n int, e error, t *asynq.Task) time.Duration {
	baseDelay := time.Second
	maxDelay := 10 * time.Minute
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
