// internal/workers/dashboard_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	redis_a "github.com/bookmybike/marketplace-be/internal/adapters/redis_adapter"
	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// DashboardProcessor handles dashboard refresh tasks
type DashboardProcessor struct {
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewDashboardProcessor creates a new dashboard processor
func NewDashboardProcessor(cache ports.CacheRepository, logger *slog.Logger) *DashboardProcessor {
	return &DashboardProcessor{
		cache:  cache,
		logger: logger.With(slog.String("processor", "dashboard")),
	}
}

// RefreshDashboard drops cached dashboard data so the next request
// recomputes from the ledger.
func (p *DashboardProcessor) RefreshDashboard(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "refreshing dashboard caches")

	pattern := redis_a.BuildKey(redis_a.PrefixDashboard, "*")
	if err := p.cache.DeletePattern(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate dashboard caches: %w", err)
	}

	return nil
}
