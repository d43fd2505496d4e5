package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// sweepTimeout bounds a single pass over the dead-letter queue
const sweepTimeout = 2 * time.Minute

// DeadLetterSweeper drops failed sub-task jobs once they outlive retention.
// Dead-lettered jobs are kept for inspection only; nothing replays them.
type DeadLetterSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
	total     int
}

// NewDeadLetterSweeper creates a sweeper; a nil purger makes every pass a no-op
func NewDeadLetterSweeper(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *DeadLetterSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadLetterSweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps once at start and then every interval until ctx is cancelled
func (s *DeadLetterSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("dlq_sweep_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and returns how many jobs it dropped
func (s *DeadLetterSweeper) Sweep(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	s.total += n
	if err != nil {
		return n, fmt.Errorf("failed to sweep dead-lettered jobs: %w", err)
	}
	if n > 0 {
		s.logger.Info("dlq_jobs_dropped",
			zap.Int("count", n),
			zap.Int("total", s.total),
			zap.Duration("retention", s.retention),
		)
	}
	return n, nil
}
