package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/storage"
)

const (
	// GoalsNamespace prefixes the per-user goal collection key
	GoalsNamespace = "goaltracker-goals"
	// GoalsSchemaVersion is written with every stored collection
	GoalsSchemaVersion = 1
)

var (
	// ErrCorruptData means the stored collection could not be decoded
	ErrCorruptData = errors.New("stored goals are unreadable")
	// ErrUnsupportedVersion means the collection was written by a newer schema
	ErrUnsupportedVersion = errors.New("stored goals use an unsupported schema version")
)

// LoadError reports why a user's goals could not be loaded
type LoadError struct {
	UserID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load goals for user %s: %v", e.UserID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type goalEnvelope struct {
	Version int           `json:"version"`
	Goals   []models.Goal `json:"goals"`
}

// GoalRepository persists each user's goals as one versioned JSON document
type GoalRepository struct {
	store storage.Store
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(store storage.Store) *GoalRepository {
	return &GoalRepository{store: store}
}

// Get loads the user's goals. A missing document is an empty collection.
func (r *GoalRepository) Get(ctx context.Context, userID string) ([]models.Goal, error) {
	data, err := r.store.Get(ctx, storage.Key(GoalsNamespace, userID))
	if errors.Is(err, storage.ErrNotFound) {
		return []models.Goal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read goals: %w", err)
	}

	goals, err := decodeGoals(data)
	if err != nil {
		return nil, &LoadError{UserID: userID, Err: err}
	}
	for i := range goals {
		goals[i].UserID = userID
		if goals[i].Subtasks == nil {
			goals[i].Subtasks = []models.Subtask{}
		}
	}
	return goals, nil
}

// Put replaces the user's whole collection
func (r *GoalRepository) Put(ctx context.Context, userID string, goals []models.Goal) error {
	if goals == nil {
		goals = []models.Goal{}
	}
	data, err := json.Marshal(goalEnvelope{Version: GoalsSchemaVersion, Goals: goals})
	if err != nil {
		return fmt.Errorf("failed to encode goals: %w", err)
	}
	if err := r.store.Set(ctx, storage.Key(GoalsNamespace, userID), data); err != nil {
		return fmt.Errorf("failed to write goals: %w", err)
	}
	return nil
}

// Delete removes the user's collection
func (r *GoalRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, storage.Key(GoalsNamespace, userID)); err != nil {
		return fmt.Errorf("failed to delete goals: %w", err)
	}
	return nil
}

func decodeGoals(data []byte) ([]models.Goal, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptData)
	}

	if trimmed[0] == '[' {
		return decodeLegacyGoals(trimmed)
	}

	var env goalEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	switch {
	case env.Version > GoalsSchemaVersion:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	case env.Version < 1:
		return nil, fmt.Errorf("%w: missing version", ErrCorruptData)
	}
	if env.Goals == nil {
		env.Goals = []models.Goal{}
	}
	return env.Goals, nil
}

// legacyGoal is the unversioned camelCase layout written by the browser client
type legacyGoal struct {
	ID           json.Number             `json:"id"`
	UserID       string                  `json:"userId"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Category     models.Category         `json:"category"`
	TargetValue  float64                 `json:"targetValue"`
	CurrentValue float64                 `json:"currentValue"`
	Unit         string                  `json:"unit"`
	StartDate    models.Date             `json:"startDate"`
	EndDate      *models.Date            `json:"endDate"`
	Color        string                  `json:"color"`
	Subtasks     []models.LenientSubtask `json:"subtasks"`
	CreatedAt    time.Time               `json:"createdAt"`
}

func decodeLegacyGoals(data []byte) ([]models.Goal, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var legacy []legacyGoal
	if err := dec.Decode(&legacy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	goals := make([]models.Goal, 0, len(legacy))
	for _, lg := range legacy {
		g := models.Goal{
			ID:           strings.TrimSpace(lg.ID.String()),
			UserID:       lg.UserID,
			Title:        lg.Title,
			Description:  lg.Description,
			Category:     lg.Category,
			TargetValue:  lg.TargetValue,
			CurrentValue: lg.CurrentValue,
			Unit:         lg.Unit,
			StartDate:    lg.StartDate,
			EndDate:      lg.EndDate,
			Color:        lg.Color,
			CreatedAt:    lg.CreatedAt,
			Subtasks:     make([]models.Subtask, 0, len(lg.Subtasks)),
		}
		if g.EndDate != nil && g.EndDate.IsZero() {
			g.EndDate = nil
		}
		for _, ls := range lg.Subtasks {
			g.Subtasks = append(g.Subtasks, models.Subtask(ls))
		}
		goals = append(goals, g)
	}
	return goals, nil
}
