// internal/handlers/import.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/internal/workers"
)

// ImportHandler handles catalog feed import operations
type ImportHandler struct {
	asynqClient *asynq.Client
	cache       ports.CacheRepository
	logger      *slog.Logger
	maxFileSize int64
	uploadDir   string
}

// NewImportHandler creates a new import handler
func NewImportHandler(asynqClient *asynq.Client, cache ports.CacheRepository, logger *slog.Logger, maxFileSize int64, uploadDir string) *ImportHandler {
	return &ImportHandler{
		asynqClient: asynqClient,
		cache:       cache,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
		uploadDir:   uploadDir,
	}
}

// ImportFeed handles POST /api/v1/import/feed
func (h *ImportHandler) ImportFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
		h.respondError(w, http.StatusBadRequest, "Only JSON feed files are allowed")
		return
	}

	source := r.FormValue("source")

	tempFile, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	jobID := uuid.New().String()
	payload := workers.FeedJobPayload{
		JobID:    jobID,
		FilePath: tempFile,
		Source:   source,
	}

	info, err := h.enqueue(workers.TypeFeedProcess, payload, "default")
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue feed task", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.recordQueued(r, jobID, header.Filename, source)

	h.logger.InfoContext(ctx, "feed import queued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID),
		slog.String("source", source))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"status":  "queued",
		"message": "Feed import has been queued for processing",
	})
}

// ImportExcel handles POST /api/v1/import/excel
func (h *ImportHandler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" &&
		contentType != "application/vnd.ms-excel" {
		h.respondError(w, http.StatusBadRequest, "Only Excel files are allowed")
		return
	}

	tempFile, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	jobID := uuid.New().String()
	payload := workers.FeedJobPayload{
		JobID:    jobID,
		FilePath: tempFile,
		Source:   r.FormValue("source"),
	}

	info, err := h.enqueue(workers.TypeExcelFeed, payload, "default")
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue Excel feed task", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.recordQueued(r, jobID, header.Filename, payload.Source)

	h.logger.InfoContext(ctx, "Excel import queued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"status":  "queued",
		"message": "Excel import has been queued for processing",
	})
}

// ImportBatch handles POST /api/v1/import/batch
func (h *ImportHandler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize * 10); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	fileType := r.FormValue("type")
	if fileType != "feed" && fileType != "excel" {
		h.respondError(w, http.StatusBadRequest, "Invalid file type. Must be feed or excel")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	batchID := uuid.New().String()
	var jobIDs []string

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to open file in batch",
				slog.String("filename", fileHeader.Filename),
				slog.String("error", err.Error()))
			continue
		}

		tempFile, err := h.saveUpload(file, fileHeader.Filename)
		file.Close()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to save file in batch",
				slog.String("filename", fileHeader.Filename),
				slog.String("error", err.Error()))
			continue
		}

		jobID := uuid.New().String()
		taskType := workers.TypeFeedProcess
		if fileType == "excel" {
			taskType = workers.TypeExcelFeed
		}

		payload := workers.FeedJobPayload{
			JobID:    jobID,
			FilePath: tempFile,
			Source:   batchID,
		}

		if _, err := h.enqueue(taskType, payload, "low"); err != nil {
			os.Remove(tempFile)
			continue
		}

		h.recordQueued(r, jobID, fileHeader.Filename, batchID)
		jobIDs = append(jobIDs, jobID)
	}

	h.logger.InfoContext(ctx, "batch import queued",
		slog.String("batch_id", batchID),
		slog.Int("total_files", len(files)),
		slog.Int("queued_jobs", len(jobIDs)))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id":    batchID,
		"job_ids":     jobIDs,
		"total_files": len(files),
		"queued_jobs": len(jobIDs),
		"status":      "queued",
		"message":     fmt.Sprintf("Batch import of %d files has been queued", len(jobIDs)),
	})
}

// ImportStatus handles GET /api/v1/import/status/{jobId}
func (h *ImportHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("jobId")

	var status workers.FeedJobStatus
	key := redis_a.BuildKey(redis_a.PrefixFeed, jobID)
	if err := h.cache.Get(ctx, key, &status); err != nil {
		if errors.Is(err, redis_a.ErrCacheMiss) {
			h.respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to get job status")
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

func (h *ImportHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tempFile := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename)))
	dst, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return tempFile, nil
}

func (h *ImportHandler) enqueue(taskType string, payload workers.FeedJobPayload, queue string) (*asynq.TaskInfo, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return h.asynqClient.Enqueue(asynq.NewTask(taskType, b),
		asynq.Queue(queue),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
}

func (h *ImportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *ImportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *ImportHandler) recordQueued(r *http.Request, jobID, fileName, source string) {
	status := workers.FeedJobStatus{
		JobID:     jobID,
		Status:    workers.FeedStatusQueued,
		FileName:  fileName,
		Source:    source,
		UpdatedAt: time.Now(),
	}
	key := redis_a.BuildKey(redis_a.PrefixFeed, jobID)
	if err := h.cache.SetWithTTL(r.Context(), key, status, 24*time.Hour); err != nil {
		h.logger.WarnContext(r.Context(), "failed to record queued status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}
