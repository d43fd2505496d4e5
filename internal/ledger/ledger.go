// Package ledger owns each user's goal collection: creation, progress, sub-task toggles and deletion.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/logger"
	"github.com/benvon/goalquest/internal/models"
)

var (
	// ErrGoalNotFound is returned when the user has no goal with the given id
	ErrGoalNotFound = errors.New("goal not found")
	// ErrSubtaskNotFound is returned when a sub-task index is out of range
	ErrSubtaskNotFound = errors.New("sub-task not found")
	// ErrInvalidDraft is returned when a draft lacks a title or a positive target
	ErrInvalidDraft = errors.New("goal draft requires a title and a positive target value")
	// ErrSubtasksExist is returned when attaching sub-tasks to a goal that already has some
	ErrSubtasksExist = errors.New("goal already has sub-tasks")
	// ErrInvalidProgress is returned for NaN or infinite progress values
	ErrInvalidProgress = errors.New("progress value must be a finite number")
)

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDGenerator overrides goal id assignment
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		l.newID = newID
	}
}

// Ledger applies goal mutations as read-modify-write cycles over the repository.
// Cycles for the same user are serialized within the process only.
type Ledger struct {
	repo   database.GoalRepositoryInterface
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a ledger over repo
func New(repo database.GoalRepositoryInterface, log *zap.Logger, opts ...Option) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{
		repo:   repo,
		logger: log,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time
func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}

// LoadGoals returns the user's goals newest first, or the load error
func (l *Ledger) LoadGoals(ctx context.Context, userID string) ([]models.Goal, error) {
	goals, err := l.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// ListGoals returns the user's goals; unreadable data is logged and treated as an empty list
func (l *Ledger) ListGoals(ctx context.Context, userID string) []models.Goal {
	goals, err := l.LoadGoals(ctx, userID)
	if err != nil {
		l.logger.Warn("goals_load_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.Error(err),
		)
		return []models.Goal{}
	}
	return goals
}

// GetGoal returns one goal
func (l *Ledger) GetGoal(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	goals, err := l.LoadGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := indexOf(goals, goalID)
	if i < 0 {
		return nil, ErrGoalNotFound
	}
	g := goals[i]
	return &g, nil
}

// ValidateDraft checks the fields creation requires
func ValidateDraft(draft *models.GoalDraft) error {
	if draft == nil || strings.TrimSpace(draft.Title) == "" {
		return ErrInvalidDraft
	}
	if draft.TargetValue == nil {
		return ErrInvalidDraft
	}
	t := *draft.TargetValue
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return ErrInvalidDraft
	}
	return nil
}

// CreateGoal validates the draft, assigns id, timestamps and color, and prepends the goal.
// An invalid draft persists nothing.
func (l *Ledger) CreateGoal(ctx context.Context, userID string, draft models.GoalDraft) (*models.Goal, error) {
	if err := ValidateDraft(&draft); err != nil {
		return nil, err
	}

	now := l.now()
	category := draft.Category
	if category == "" {
		category = models.CategoryPersonal
	}

	goal := models.Goal{
		ID:           l.newID(),
		UserID:       userID,
		Title:        strings.TrimSpace(draft.Title),
		Description:  draft.Description,
		Category:     category,
		TargetValue:  *draft.TargetValue,
		CurrentValue: draft.CurrentValue,
		Unit:         draft.Unit,
		StartDate:    models.Today(now),
		EndDate:      draft.EndDate,
		Color:        models.CategoryColor(category),
		Subtasks:     normalizeSubtasks(draft.Subtasks),
		CreatedAt:    now.UTC(),
	}
	if math.IsNaN(goal.CurrentValue) || math.IsInf(goal.CurrentValue, 0) {
		goal.CurrentValue = 0
	}
	if draft.StartDate != nil && !draft.StartDate.IsZero() {
		goal.StartDate = *draft.StartDate
	}
	if goal.EndDate != nil && goal.EndDate.IsZero() {
		goal.EndDate = nil
	}

	err := l.mutate(ctx, userID, func(goals []models.Goal) ([]models.Goal, error) {
		return append([]models.Goal{goal}, goals...), nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("goal_created",
		zap.String("user_id", logger.SanitizeUserID(userID)),
		zap.String("goal_id", goal.ID),
		zap.String("category", string(goal.Category)),
	)
	return &goal, nil
}

// DeleteGoal removes a goal; deleting an unknown id succeeds without writing
func (l *Ledger) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return l.mutate(ctx, userID, func(goals []models.Goal) ([]models.Goal, error) {
		i := indexOf(goals, goalID)
		if i < 0 {
			return nil, errNoChange
		}
		return append(goals[:i], goals[i+1:]...), nil
	})
}

// UpdateProgress sets the current value; status and progress stay derived
func (l *Ledger) UpdateProgress(ctx context.Context, userID, goalID string, value float64) (*models.Goal, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidProgress
	}
	return l.mutateGoal(ctx, userID, goalID, func(g *models.Goal) error {
		g.CurrentValue = value
		return nil
	})
}

// ToggleSubtask flips completion of the sub-task at index
func (l *Ledger) ToggleSubtask(ctx context.Context, userID, goalID string, index int) (*models.Goal, error) {
	return l.mutateGoal(ctx, userID, goalID, func(g *models.Goal) error {
		if index < 0 || index >= len(g.Subtasks) {
			return fmt.Errorf("%w: index %d of %d", ErrSubtaskNotFound, index, len(g.Subtasks))
		}
		g.Subtasks[index].Completed = !g.Subtasks[index].Completed
		return nil
	})
}

// AttachSubtasks stores a generated batch on a goal that has none yet
func (l *Ledger) AttachSubtasks(ctx context.Context, userID, goalID string, subtasks []models.Subtask) (*models.Goal, error) {
	return l.mutateGoal(ctx, userID, goalID, func(g *models.Goal) error {
		if len(g.Subtasks) > 0 {
			return ErrSubtasksExist
		}
		g.Subtasks = normalizeSubtasks(subtasks)
		return nil
	})
}

// ResetGoals deletes the whole collection, including unreadable data
func (l *Ledger) ResetGoals(ctx context.Context, userID string) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.repo.Delete(ctx, userID); err != nil {
		return err
	}
	l.logger.Info("goals_reset", zap.String("user_id", logger.SanitizeUserID(userID)))
	return nil
}

// Stats summarizes the user's goals at the ledger clock
func (l *Ledger) Stats(ctx context.Context, userID string) (models.GoalStats, error) {
	goals, err := l.LoadGoals(ctx, userID)
	if err != nil {
		return models.GoalStats{}, err
	}
	return models.ComputeStats(goals, l.now()), nil
}

// Views decorates goals with the values derived at the ledger clock
func (l *Ledger) Views(goals []models.Goal) []models.GoalView {
	now := l.now()
	views := make([]models.GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, models.NewGoalView(g, now))
	}
	return views
}

var errNoChange = errors.New("no change")

// mutate runs one read-modify-write cycle. Load errors abort the cycle so unreadable
// data is never overwritten.
func (l *Ledger) mutate(ctx context.Context, userID string, fn func([]models.Goal) ([]models.Goal, error)) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	goals, err := l.LoadGoals(ctx, userID)
	if err != nil {
		return err
	}

	updated, err := fn(goals)
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := l.repo.Put(ctx, userID, updated); err != nil {
		l.logger.Error("goals_persist_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (l *Ledger) mutateGoal(ctx context.Context, userID, goalID string, fn func(*models.Goal) error) (*models.Goal, error) {
	var result models.Goal
	err := l.mutate(ctx, userID, func(goals []models.Goal) ([]models.Goal, error) {
		i := indexOf(goals, goalID)
		if i < 0 {
			return nil, ErrGoalNotFound
		}
		if err := fn(&goals[i]); err != nil {
			return nil, err
		}
		result = goals[i]
		return goals, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func indexOf(goals []models.Goal, goalID string) int {
	for i := range goals {
		if goals[i].ID == goalID {
			return i
		}
	}
	return -1
}

func normalizeSubtasks(in []models.Subtask) []models.Subtask {
	out := make([]models.Subtask, 0, len(in))
	for _, s := range in {
		if s.DaysFromStart < 0 {
			s.DaysFromStart = 0
		}
		out = append(out, s)
	}
	return out
}
