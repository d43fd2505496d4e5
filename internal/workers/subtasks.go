// Package workers processes queued jobs outside the request path.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/goalquest/internal/ledger"
	logpkg "github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/queue"
	"github.com/benvon/goalquest/internal/request"
	"github.com/benvon/goalquest/internal/services/ai"
	"github.com/benvon/goalquest/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/goalquest/internal/workers"

// GoalStore is the slice of the ledger the worker needs
type GoalStore interface {
	GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error)
	AttachSubtasks(ctx context.Context, userID, goalID string, subtasks []models.Subtask) (*models.Goal, error)
}

// SubtaskGenerator produces a sub-task plan for a draft
type SubtaskGenerator interface {
	GenerateSubtasks(ctx context.Context, userID string, draft models.GoalDraft) ([]models.Subtask, error)
}

var (
	_ GoalStore        = (*ledger.Ledger)(nil)
	_ SubtaskGenerator = (*ai.Assistant)(nil)
)

// Outcome names how a job ended, for logs and tests
type Outcome string

const (
	OutcomeAttached Outcome = "attached"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeExpired  Outcome = "expired"
	OutcomeFailed   Outcome = "failed"
)

// SubtaskWorker generates and attaches sub-tasks for queued goals.
// Each job gets exactly one generation attempt; failures are dead-lettered.
type SubtaskWorker struct {
	goals     GoalStore
	generator SubtaskGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSubtaskWorker creates a new worker
func NewSubtaskWorker(goals GoalStore, generator SubtaskGenerator, logger *zap.Logger) *SubtaskWorker {
	return &SubtaskWorker{
		goals:     goals,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessJob handles one message and settles it: ack on success, skip or expiry,
// nack without requeue on failure.
func (w *SubtaskWorker) ProcessJob(ctx context.Context, msg queue.MessageInterface) (Outcome, error) {
	job := msg.GetJob()
	ctx = telemetry.ExtractHeaders(ctx, job.Trace)
	ctx = request.WithRequestID(ctx, job.ID.String())
	ctx, span := otel.Tracer(tracerName).Start(ctx, "worker.subtask_generation")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", job.ID.String()))

	outcome, err := w.process(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subtask generation failed")
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return OutcomeFailed, err
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return outcome, fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return outcome, nil
}

func (w *SubtaskWorker) process(ctx context.Context, job *queue.Job) (Outcome, error) {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logpkg.SanitizeUserID(job.UserID)),
		zap.String("goal_id", logpkg.SanitizeUserID(job.GoalID)),
	}

	if job.Type != queue.JobTypeSubtaskGeneration {
		return OutcomeFailed, fmt.Errorf("unknown job type: %s", job.Type)
	}
	if job.IsExpired(w.now()) {
		w.logger.Info("job_expired", fields...)
		return OutcomeExpired, nil
	}

	goal, err := w.goals.GetGoal(ctx, job.UserID, job.GoalID)
	if errors.Is(err, ledger.ErrGoalNotFound) {
		w.logger.Info("job_goal_deleted", fields...)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to load goal: %w", err)
	}
	if len(goal.Subtasks) > 0 {
		w.logger.Info("job_goal_has_subtasks", fields...)
		return OutcomeSkipped, nil
	}

	subtasks, err := w.generator.GenerateSubtasks(ctx, job.UserID, models.DraftFromGoal(goal))
	if err != nil {
		// Quota exhaustion fails every job until billing is fixed, so it is logged louder
		if errors.Is(err, ai.ErrQuotaExceeded) {
			w.logger.Error("job_quota_exceeded", fields...)
		} else if errors.Is(err, ai.ErrRateLimited) {
			w.logger.Warn("job_rate_limited", fields...)
		}
		return OutcomeFailed, err
	}

	if _, err := w.goals.AttachSubtasks(ctx, job.UserID, job.GoalID, subtasks); err != nil {
		// The user added sub-tasks or deleted the goal while we were generating.
		if errors.Is(err, ledger.ErrSubtasksExist) || errors.Is(err, ledger.ErrGoalNotFound) {
			w.logger.Info("job_goal_changed", fields...)
			return OutcomeSkipped, nil
		}
		return OutcomeFailed, fmt.Errorf("failed to attach subtasks: %w", err)
	}

	w.logger.Info("job_subtasks_attached", append(fields, zap.Int("count", len(subtasks)))...)
	return OutcomeAttached, nil
}

// Run processes messages until ctx is cancelled or the message channel closes
func (w *SubtaskWorker) Run(ctx context.Context, msgs <-chan queue.MessageInterface, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				return queue.ErrQueueUnavailable
			}
			outcome, err := w.ProcessJob(ctx, msg)
			if err != nil {
				w.logger.Error("job_failed",
					zap.String("job_id", msg.GetJob().ID.String()),
					zap.String("outcome", string(outcome)),
					zap.Bool("quota_exceeded", errors.Is(err, ai.ErrQuotaExceeded)),
					zap.String("error", logpkg.SanitizeError(err)),
				)
			}
		}
	}
}
