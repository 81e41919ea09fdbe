// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/bookmybike/marketplace-be/internal/adapters/db"
	"github.com/bookmybike/marketplace-be/internal/pkg/config"
)

// HealthHandler reports liveness and readiness for the API process and
// its dependencies.
type HealthHandler struct {
	db        *db.Database
	redis     *redis.Client
	asynq     *asynq.Inspector
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

func NewHealthHandler(
	database *db.Database,
	redisClient *redis.Client,
	asynqInspector *asynq.Inspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		asynq:     asynqInspector,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// DependencyStatus is the outcome of probing one dependency.
type DependencyStatus struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// HealthReport is the /health response body.
type HealthReport struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Environment  string                      `json:"environment"`
	Uptime       string                      `json:"uptime"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	Runtime      RuntimeStats                `json:"runtime"`
}

// RuntimeStats is a small snapshot of the Go runtime for the report.
type RuntimeStats struct {
	GoVersion     string `json:"go_version"`
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health handles GET /health. Any degraded dependency turns the whole
// report degraded and the response into a 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := HealthReport{
		Status:       "healthy",
		Version:      h.config.App.Version,
		Environment:  h.config.App.Environment,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:    time.Now(),
		Dependencies: make(map[string]DependencyStatus),
		Runtime:      runtimeStats(),
	}

	report.Dependencies["database"] = h.probeDatabase(ctx)
	report.Dependencies["redis"] = h.probeRedis(ctx)
	if h.asynq != nil {
		report.Dependencies["asynq"] = h.probeAsynq(ctx)
	}

	for _, dep := range report.Dependencies {
		if dep.Status != "healthy" {
			report.Status = "degraded"
			break
		}
	}

	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.writeReport(ctx, w, code, report)
}

// Readiness handles GET /ready: a cheap gate for load balancers, probing
// only the stores the request path depends on.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	details := map[string]string{"database": "ready", "redis": "ready"}
	ready := true

	if err := h.db.Ping(ctx); err != nil {
		ready = false
		details["database"] = "not ready"
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		ready = false
		details["redis"] = "not ready"
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	h.writeReport(ctx, w, code, map[string]any{"ready": ready, "details": details})
}

func (h *HealthHandler) probeDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return DependencyStatus{Status: "unhealthy", Message: err.Error()}
	}

	return DependencyStatus{
		Status:   "healthy",
		Duration: time.Since(start).String(),
		Details:  h.db.Health(ctx),
	}
}

func (h *HealthHandler) probeRedis(ctx context.Context) DependencyStatus {
	start := time.Now()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return DependencyStatus{Status: "unhealthy", Message: err.Error()}
	}

	pool := h.redis.PoolStats()
	return DependencyStatus{
		Status:   "healthy",
		Duration: time.Since(start).String(),
		Details: map[string]any{
			"total_conns": pool.TotalConns,
			"idle_conns":  pool.IdleConns,
			"stale_conns": pool.StaleConns,
		},
	}
}

func (h *HealthHandler) probeAsynq(ctx context.Context) DependencyStatus {
	start := time.Now()

	queues, err := h.asynq.Queues()
	if err != nil {
		h.logger.ErrorContext(ctx, "asynq health check failed",
			slog.String("error", err.Error()))
		return DependencyStatus{Status: "unhealthy", Message: err.Error()}
	}

	queueStats := make(map[string]any, len(queues))
	for _, queue := range queues {
		info, err := h.asynq.GetQueueInfo(queue)
		if err != nil {
			continue
		}
		queueStats[queue] = map[string]any{
			"size":    info.Size,
			"active":  info.Active,
			"pending": info.Pending,
			"retry":   info.Retry,
		}
	}

	return DependencyStatus{
		Status:   "healthy",
		Duration: time.Since(start).String(),
		Details:  map[string]any{"queues": queueStats},
	}
}

func (h *HealthHandler) writeReport(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

func runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: mem.Alloc / 1024 / 1024,
		NumGC:         mem.NumGC,
	}
}
