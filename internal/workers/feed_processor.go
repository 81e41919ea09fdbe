// internal/workers/feed_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/adapters/storage"
	"github.com/bookmybike/marketplace-be/internal/core/domain"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// FeedArchiver stores processed feed files for audit. Satisfied by both
// storage backends.
type FeedArchiver interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
}

const (
	TypeFeedProcess      = "feed:process"
	TypeExcelFeed        = "feed:excel"
	TypeSoldNotify       = "stock:sold_notify"
	TypeSendEmail        = "email:send"
	TypeRefreshDashboard = "dashboard:refresh"
	TypeCleanupOldData   = "cleanup:old_data"
	TypeCleanupTempFiles = "cleanup:temp_files"
)

// FeedJobPayload represents the payload for catalog feed jobs
type FeedJobPayload struct {
	JobID    string `json:"job_id"`
	FilePath string `json:"file_path"`
	Source   string `json:"source,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// FeedJobResult represents the result of feed processing
type FeedJobResult struct {
	VariantsProcessed int      `json:"variants_processed"`
	Errors            []string `json:"errors,omitempty"`
	ProcessingTime    string   `json:"processing_time"`
}

// FeedJobStatus is the cached state of a feed job, readable through the
// import status endpoint.
type FeedJobStatus struct {
	JobID             string    `json:"job_id"`
	Status            string    `json:"status"`
	FileName          string    `json:"file_name,omitempty"`
	Source            string    `json:"source,omitempty"`
	VariantsProcessed int       `json:"variants_processed,omitempty"`
	Error             string    `json:"error,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const (
	FeedStatusQueued     = "queued"
	FeedStatusProcessing = "processing"
	FeedStatusCompleted  = "completed"
	FeedStatusFailed     = "failed"
)

const feedStatusTTL = 24 * time.Hour

// feedItem is one row of an OEM catalog feed file
type feedItem struct {
	Make       string          `json:"make"`
	Model      string          `json:"model"`
	Variant    string          `json:"variant"`
	BodyType   string          `json:"body_type"`
	FuelType   string          `json:"fuel_type"`
	Segment    string          `json:"segment"`
	ExShowroom decimal.Decimal `json:"ex_showroom"`
	OnRoad     decimal.Decimal `json:"on_road"`
	OfferPrice decimal.Decimal `json:"offer_price"`
	Specs      map[string]any  `json:"specs"`
}

// FeedProcessor handles catalog feed import tasks
type FeedProcessor struct {
	service ports.CatalogService
	cache   ports.CacheRepository
	archive FeedArchiver
	logger  *slog.Logger
}

// NewFeedProcessor creates a new feed processor
func NewFeedProcessor(service ports.CatalogService, cache ports.CacheRepository, logger *slog.Logger) *FeedProcessor {
	return &FeedProcessor{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("processor", "feed")),
	}
}

// SetArchive enables archival of processed feed files to object storage
func (p *FeedProcessor) SetArchive(archive FeedArchiver) {
	p.archive = archive
}

// archiveFeed copies a processed feed file to object storage before the
// local copy is removed. The import has already succeeded; archive
// failures are logged, not returned.
func (p *FeedProcessor) archiveFeed(ctx context.Context, payload *FeedJobPayload) {
	if p.archive == nil {
		return
	}

	f, err := os.Open(payload.FilePath)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to open feed file for archival",
			slog.String("job_id", payload.JobID),
			slog.String("error", err.Error()))
		return
	}
	defer f.Close()

	key := storage.FeedArchiveKey(payload.Source, payload.FilePath)
	if _, err := p.archive.Upload(ctx, key, f, ""); err != nil {
		p.logger.WarnContext(ctx, "failed to archive feed file",
			slog.String("job_id", payload.JobID),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	p.logger.DebugContext(ctx, "feed file archived",
		slog.String("job_id", payload.JobID),
		slog.String("key", key))
}

func (p *FeedProcessor) markStatus(ctx context.Context, status FeedJobStatus) {
	if p.cache == nil || status.JobID == "" {
		return
	}
	status.UpdatedAt = time.Now()
	key := redis_a.BuildKey(redis_a.PrefixFeed, status.JobID)
	if err := p.cache.SetWithTTL(ctx, key, status, feedStatusTTL); err != nil {
		p.logger.WarnContext(ctx, "failed to record feed job status",
			slog.String("job_id", status.JobID),
			slog.String("error", err.Error()))
	}
}

// ProcessFeed processes a JSON catalog feed file and upserts its variants
func (p *FeedProcessor) ProcessFeed(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload FeedJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing catalog feed",
		slog.String("job_id", payload.JobID),
		slog.String("file_path", payload.FilePath))

	p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusProcessing, Source: payload.Source})

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusFailed, Error: err.Error()})
		return fmt.Errorf("failed to read feed file: %w", err)
	}

	var items []feedItem
	if err := json.Unmarshal(data, &items); err != nil {
		p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusFailed, Error: err.Error()})
		return fmt.Errorf("failed to parse feed file: %w", err)
	}

	variants := make([]domain.VehicleVariant, 0, len(items))
	for i := range items {
		variants = append(variants, items[i].toDomain())
	}

	if err := p.service.BulkUpsert(ctx, variants); err != nil {
		p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusFailed, Error: err.Error()})
		return fmt.Errorf("failed to upsert feed variants: %w", err)
	}

	p.archiveFeed(ctx, &payload)
	p.cleanupTempFile(payload.FilePath)

	p.markStatus(ctx, FeedJobStatus{
		JobID:             payload.JobID,
		Status:            FeedStatusCompleted,
		Source:            payload.Source,
		VariantsProcessed: len(variants),
	})

	p.logger.InfoContext(ctx, "catalog feed processed",
		slog.String("job_id", payload.JobID),
		slog.Int("variants_processed", len(variants)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// ProcessExcelFeed processes an Excel catalog feed and upserts its variants
func (p *FeedProcessor) ProcessExcelFeed(ctx context.Context, t *asynq.Task) error {
	var payload FeedJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing Excel catalog feed",
		slog.String("job_id", payload.JobID),
		slog.String("file_path", payload.FilePath))

	p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusProcessing, Source: payload.Source})

	file, err := xlsx.OpenFile(payload.FilePath)
	if err != nil {
		p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusFailed, Error: err.Error()})
		return fmt.Errorf("failed to open Excel file: %w", err)
	}

	var variants []domain.VehicleVariant

	// Process first sheet
	if len(file.Sheets) > 0 {
		sheet := file.Sheets[0]
		rowIdx := 0

		err = sheet.ForEachRow(func(r *xlsx.Row) error {
			// Skip header row
			if rowIdx == 0 {
				rowIdx++
				return nil
			}
			rowIdx++

			variant := p.parseRow(r)
			if variant != nil {
				variants = append(variants, *variant)
			}
			return nil
		})

		if err != nil {
			return fmt.Errorf("failed to process Excel rows: %w", err)
		}
	}

	if len(variants) > 0 {
		if err := p.service.BulkUpsert(ctx, variants); err != nil {
			p.markStatus(ctx, FeedJobStatus{JobID: payload.JobID, Status: FeedStatusFailed, Error: err.Error()})
			return fmt.Errorf("failed to upsert feed variants: %w", err)
		}
	}

	p.archiveFeed(ctx, &payload)
	p.cleanupTempFile(payload.FilePath)

	p.markStatus(ctx, FeedJobStatus{
		JobID:             payload.JobID,
		Status:            FeedStatusCompleted,
		Source:            payload.Source,
		VariantsProcessed: len(variants),
	})

	p.logger.InfoContext(ctx, "Excel feed processed",
		slog.String("job_id", payload.JobID),
		slog.Int("variants_processed", len(variants)))

	return nil
}

// parseRow reads one feed row: make, model, variant, body type, fuel
// type, segment, ex-showroom, on-road, offer price, displacement, front
// brake, rear brake, abs, wheel, console, seat height, kerb weight,
// finish.
func (p *FeedProcessor) parseRow(r *xlsx.Row) *domain.VehicleVariant {
	get := func(i int) string {
		c := r.GetCell(i)
		if c == nil {
			return ""
		}
		return strings.TrimSpace(c.String())
	}

	getDecimal := func(i int) decimal.Decimal {
		s := get(i)
		if s == "" {
			return decimal.Zero
		}
		d, _ := decimal.NewFromString(strings.TrimPrefix(s, "₹"))
		return d
	}

	mk, model := get(0), get(1)
	if mk == "" || model == "" {
		return nil
	}

	specs := map[string]any{
		"displacement_cc": get(9),
		"front_brake":     get(10),
		"rear_brake":      get(11),
		"abs":             get(12),
		"wheel":           get(13),
		"console":         get(14),
		"seat_height_mm":  get(15),
		"kerb_weight_kg":  get(16),
		"finish":          get(17),
	}

	return &domain.VehicleVariant{
		Make:     mk,
		Model:    model,
		Variant:  get(2),
		BodyType: domain.BodyType(strings.ToUpper(get(3))),
		FuelType: domain.FuelType(strings.ToUpper(get(4))),
		Segment:  get(5),
		Price: domain.Price{
			ExShowroom: getDecimal(6),
			OnRoad:     getDecimal(7),
			OfferPrice: getDecimal(8),
		},
		Specs:    domain.SpecsFromMap(specs),
		IsActive: true,
	}
}

func (p *FeedProcessor) cleanupTempFile(path string) {
	if strings.HasPrefix(path, "/tmp/") || strings.Contains(path, "uploads") {
		os.Remove(path)
	}
}

func (f *feedItem) toDomain() domain.VehicleVariant {
	return domain.VehicleVariant{
		Make:     f.Make,
		Model:    f.Model,
		Variant:  f.Variant,
		BodyType: domain.BodyType(strings.ToUpper(f.BodyType)),
		FuelType: domain.FuelType(strings.ToUpper(f.FuelType)),
		Segment:  f.Segment,
		Price: domain.Price{
			ExShowroom: f.ExShowroom,
			OnRoad:     f.OnRoad,
			OfferPrice: f.OfferPrice,
		},
		Specs:    domain.SpecsFromMap(f.Specs),
		IsActive: true,
	}
}
