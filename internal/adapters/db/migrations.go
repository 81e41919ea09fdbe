// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationConfig locates the migration files and the schema version
// table.
type MigrationConfig struct {
	DatabaseURL string
	SourcePath  string
	TableName   string
	SchemaName  string
}

// Migrator applies SQL migrations through golang-migrate over a
// dedicated database/sql connection.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewMigrator opens a small connection pool for migration work and wires
// the file source against the postgres driver.
func NewMigrator(cfg *MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if cfg == nil {
		return nil, errors.New("migration config is required")
	}
	if cfg.TableName == "" {
		cfg.TableName = "schema_migrations"
	}
	if cfg.SchemaName == "" {
		cfg.SchemaName = "public"
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: cfg.TableName,
		SchemaName:      cfg.SchemaName,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.SourcePath, "postgres", driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m, sqlDB: sqlDB, logger: logger}, nil
}

// Up applies all pending migrations.
func (mg *Migrator) Up(ctx context.Context) error {
	mg.logger.InfoContext(ctx, "applying migrations")

	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.InfoContext(ctx, "schema already up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if version, dirty, err := mg.m.Version(); err == nil {
		mg.logger.InfoContext(ctx, "migrations applied",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty))
	}
	return nil
}

// Down rolls back a single migration. Refuses to run on a dirty schema.
func (mg *Migrator) Down(ctx context.Context) error {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema is dirty at version %d, resolve manually", version)
	}

	if err := mg.m.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("roll back migration: %w", err)
	}

	mg.logger.InfoContext(ctx, "rolled back one migration",
		slog.Uint64("from_version", uint64(version)))
	return nil
}

// Version reports the current schema version. A fresh database reports
// version zero.
func (mg *Migrator) Version(ctx context.Context) (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migrator's connections.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	closeErr := mg.sqlDB.Close()
	switch {
	case srcErr != nil:
		return srcErr
	case dbErr != nil:
		return dbErr
	default:
		return closeErr
	}
}

// RunMigrationsWithRetry applies migrations, backing off between
// attempts. Covers the race where the database container is reachable
// before it accepts DDL.
func RunMigrationsWithRetry(ctx context.Context, cfg *MigrationConfig, logger *slog.Logger, maxAttempts int) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * 2 * time.Second
			logger.InfoContext(ctx, "retrying migrations",
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait))
			time.Sleep(wait)
		}

		mg, err := NewMigrator(cfg, logger)
		if err != nil {
			lastErr = err
			continue
		}

		err = mg.Up(ctx)
		if closeErr := mg.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close migrator",
				slog.String("error", closeErr.Error()))
		}
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("migrations failed after %d attempts: %w", maxAttempts, lastErr)
}
