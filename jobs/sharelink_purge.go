package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SharePurger is the slice of the resources service the purge job needs.
type SharePurger interface {
	PurgeExpiredShares(ctx context.Context, retention time.Duration) (int64, error)
}

// NewShareLinkPurgeTask constructs the cron task. It carries no payload; the
// retention window is fixed at worker start.
func NewShareLinkPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeShareLinkPurge, nil)
}

// NewShareLinkPurgeHandler builds the sharelink:purge handler.
func NewShareLinkPurgeHandler(purger SharePurger, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := purger.PurgeExpiredShares(ctx, retention)
		if err != nil {
			logger.Warn("purge share links", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("share links purged", slog.Int64("count", n))
		}
		return nil
	}
}
