package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/crm-backend/internal/metrics"
	"github.com/robfig/cron/v3"
)

type expiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenReaper deletes password reset tokens whose expiry has passed.
// Expired tokens are already rejected at use time; this only keeps the
// table small.
type ResetTokenReaper struct {
	tokens   expiredTokenDeleter
	schedule string
	logger   *slog.Logger
	now      func() time.Time
}

func NewResetTokenReaper(tokens expiredTokenDeleter, schedule string, logger *slog.Logger) *ResetTokenReaper {
	return &ResetTokenReaper{
		tokens:   tokens,
		schedule: schedule,
		logger:   logger.With("component", "reset_token_reaper"),
		now:      time.Now,
	}
}

// Start runs Reap on the cron schedule until ctx is cancelled, then waits for
// an in-flight run to finish.
func (r *ResetTokenReaper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.Reap(ctx); err != nil {
			r.logger.ErrorContext(ctx, "purge expired reset tokens", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("parse schedule %q: %w", r.schedule, err)
	}

	r.logger.InfoContext(ctx, "reaper started", "schedule", r.schedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("reaper: shut down")
	return nil
}

// Reap runs one purge cycle and returns the number of deleted tokens.
func (r *ResetTokenReaper) Reap(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds())
	}()

	n, err := r.tokens.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	if n > 0 {
		metrics.ResetTokensPurgedTotal.Add(float64(n))
		r.logger.InfoContext(ctx, "purged expired reset tokens", "count", n)
	}
	return n, nil
}
