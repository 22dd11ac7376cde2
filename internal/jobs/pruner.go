package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunPruner removes terminal jobs older than retention every interval until
// ctx is cancelled. A non-positive retention disables pruning and returns
// immediately.
func RunPruner(ctx context.Context, registry *Memory, retention, interval time.Duration, logger zerolog.Logger) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = retention
	}

	logger = logger.With().Str("component", "job_pruner").Logger()
	logger.Info().Dur("retention", retention).Dur("interval", interval).Msg("job pruner started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("job pruner stopped")
			return
		case <-ticker.C:
			if n := registry.Prune(retention); n > 0 {
				logger.Debug().Int("removed", n).Int("remaining", registry.Len()).Msg("pruned terminal jobs")
			}
		}
	}
}
