package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job purges session rows whose expiry has passed. Expired rows are already
// invisible to readers; this reclaims the space.
type Job struct {
	sessions expiredSessionCleaner
	now      func() time.Time
	logger   *zap.Logger
}

type expiredSessionCleaner interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

func New(sessions expiredSessionCleaner, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}

	rows, err := j.sessions.DeleteExpired(ctx, j.now())
	if err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup expired sessions completed", zap.Int64("deleted", rows))
	}

	return nil
}

// RunPeriodically blocks until the context is done, invoking Run on every
// tick. A failed pass is logged, not fatal.
func (j *Job) RunPeriodically(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup pass failed", zap.Error(err))
			}
		}
	}
}
