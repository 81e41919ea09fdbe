// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
)

const (
	// Soft-deleted variants are kept around long enough for a dealer to
	// undo an accidental delisting before the purge takes them.
	variantRetention = 90 * 24 * time.Hour

	tempFileMaxAge = 24 * time.Hour
)

// CleanupProcessor runs the scheduled housekeeping tasks.
type CleanupProcessor struct {
	db     *db.Database
	config *config.Config
	logger *slog.Logger
}

func NewCleanupProcessor(database *db.Database, cfg *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		db:     database,
		config: cfg,
		logger: logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupOldData purges catalog variants whose soft-delete has aged past
// the retention window. The stock ledger is append-only and is never
// touched here.
func (p *CleanupProcessor) CleanupOldData(ctx context.Context, _ *asynq.Task) error {
	cutoff := time.Now().Add(-variantRetention)

	result, err := p.db.Exec(ctx,
		`DELETE FROM vehicle_variants WHERE deleted_at IS NOT NULL AND deleted_at < $1`,
		cutoff)
	if err != nil {
		return fmt.Errorf("purge soft-deleted variants: %w", err)
	}

	p.logger.InfoContext(ctx, "purged soft-deleted variants",
		slog.Int64("rows_deleted", result.RowsAffected()),
		slog.Time("cutoff", cutoff))
	return nil
}

// CleanupTempFiles sweeps the feed-processing scratch directory,
// removing files older than a day. Uploads that died mid-import leave
// their spool files behind; this is what reclaims them.
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, _ *asynq.Task) error {
	tempDir := p.config.FeedProcessing.TempDir

	var deleted int
	err := filepath.WalkDir(tempDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		if time.Since(info.ModTime()) <= tempFileMaxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			p.logger.WarnContext(ctx, "could not remove stale temp file",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil
		}
		deleted++
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep temp directory %s: %w", tempDir, err)
	}

	p.logger.InfoContext(ctx, "temp files swept",
		slog.String("dir", tempDir),
		slog.Int("files_deleted", deleted))
	return nil
}
