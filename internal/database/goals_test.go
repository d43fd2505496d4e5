package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/storage"
)

func TestGoalRepository_MissingIsEmpty(t *testing.T) {
	t.Parallel()

	repo := NewGoalRepository(storage.NewMemoryStore())
	goals, err := repo.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if goals == nil || len(goals) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", goals)
	}
}

func TestGoalRepository_PutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := NewGoalRepository(store)

	end := models.NewDate(2024, 12, 31)
	in := []models.Goal{{
		ID:          "01HXYZ",
		UserID:      "u1",
		Title:       "Run 500km",
		Category:    models.CategoryFitness,
		TargetValue: 500,
		Unit:        "km",
		StartDate:   models.NewDate(2024, 1, 1),
		EndDate:     &end,
		Color:       "#FF4B4B",
		Subtasks:    []models.Subtask{{Title: "Week one", DaysFromStart: 7}},
		CreatedAt:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}}

	if err := repo.Put(ctx, "u1", in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := store.Get(ctx, "goaltracker-goals-u1")
	if err != nil {
		t.Fatalf("Expected data under goaltracker-goals-u1: %v", err)
	}
	if !strings.HasPrefix(string(raw), `{"version":1,`) {
		t.Errorf("Expected versioned envelope, got %s", raw)
	}

	out, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected 1 goal, got %d", len(out))
	}
	g := out[0]
	if g.Title != "Run 500km" || g.TargetValue != 500 || g.Unit != "km" {
		t.Errorf("Unexpected goal: %+v", g)
	}
	if g.EndDate == nil || g.EndDate.String() != "2024-12-31" {
		t.Errorf("Expected end date 2024-12-31, got %v", g.EndDate)
	}
	if len(g.Subtasks) != 1 || g.Subtasks[0].DaysFromStart != 7 {
		t.Errorf("Unexpected sub-tasks: %+v", g.Subtasks)
	}
}

func TestGoalRepository_UsersArePartitioned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGoalRepository(storage.NewMemoryStore())
	_ = repo.Put(ctx, "alice", []models.Goal{{ID: "a", Title: "A", TargetValue: 1}})

	goals, err := repo.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(goals) != 0 {
		t.Errorf("Expected bob to see no goals, got %d", len(goals))
	}
}

func TestGoalRepository_LegacyArray(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	legacy := `[{"id":1704099600000,"userId":"u1","title":"Read 12 books","description":"",` +
		`"category":"personal","targetValue":12,"currentValue":3,"unit":"books",` +
		`"startDate":"2024-01-01","endDate":"","color":"#58CC02",` +
		`"subtasks":[{"title":"Pick list","description":"","daysFromStart":2,"completed":true}],` +
		`"createdAt":"2024-01-01T09:00:00.000Z"}]`
	_ = store.Set(ctx, "goaltracker-goals-u1", []byte(legacy))

	goals, err := NewGoalRepository(store).Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Expected legacy data to load, got %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("Expected 1 goal, got %d", len(goals))
	}
	g := goals[0]
	if g.ID != "1704099600000" {
		t.Errorf("Expected numeric id to become string, got %q", g.ID)
	}
	if g.CurrentValue != 3 || g.TargetValue != 12 {
		t.Errorf("Unexpected values: %+v", g)
	}
	if g.EndDate != nil {
		t.Errorf("Expected empty end date to mean no deadline, got %v", g.EndDate)
	}
	if len(g.Subtasks) != 1 || !g.Subtasks[0].Completed || g.Subtasks[0].DaysFromStart != 2 {
		t.Errorf("Unexpected sub-tasks: %+v", g.Subtasks)
	}
}

func TestGoalRepository_LegacyLooseSubtasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		subtask   string
		wantDays  int
		wantTitle string
		wantDone  bool
	}{
		{name: "days as string", subtask: `{"title":"Plan","daysFromStart":"7"}`, wantDays: 7, wantTitle: "Plan"},
		{name: "fractional days", subtask: `{"title":"Plan","daysFromStart":7.5}`, wantDays: 8, wantTitle: "Plan"},
		{name: "negative days", subtask: `{"title":"Plan","daysFromStart":-3}`, wantDays: 0, wantTitle: "Plan"},
		{name: "numeric title", subtask: `{"title":42,"daysFromStart":1}`, wantDays: 1, wantTitle: "42"},
		{name: "completed as string", subtask: `{"title":"Plan","completed":"true"}`, wantTitle: "Plan", wantDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := storage.NewMemoryStore()
			legacy := `[{"id":1,"title":"Run","targetValue":10,"currentValue":1,` +
				`"startDate":"2024-01-01","subtasks":[` + tt.subtask + `]}]`
			_ = store.Set(ctx, "goaltracker-goals-u1", []byte(legacy))

			goals, err := NewGoalRepository(store).Get(ctx, "u1")
			if err != nil {
				t.Fatalf("Expected legacy data to load, got %v", err)
			}
			if len(goals) != 1 || len(goals[0].Subtasks) != 1 {
				t.Fatalf("Expected 1 goal with 1 sub-task, got %+v", goals)
			}
			got := goals[0].Subtasks[0]
			if got.DaysFromStart != tt.wantDays {
				t.Errorf("Expected days %d, got %d", tt.wantDays, got.DaysFromStart)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Expected title %q, got %q", tt.wantTitle, got.Title)
			}
			if got.Completed != tt.wantDone {
				t.Errorf("Expected completed %v, got %v", tt.wantDone, got.Completed)
			}
		})
	}
}

func TestGoalRepository_LoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "garbage", data: `not json`, wantErr: ErrCorruptData},
		{name: "truncated envelope", data: `{"version":1,"goals":[`, wantErr: ErrCorruptData},
		{name: "missing version", data: `{"goals":[]}`, wantErr: ErrCorruptData},
		{name: "future version", data: `{"version":2,"goals":[]}`, wantErr: ErrUnsupportedVersion},
		{name: "empty document", data: `   `, wantErr: ErrCorruptData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := storage.NewMemoryStore()
			_ = store.Set(ctx, "goaltracker-goals-u1", []byte(tt.data))

			_, err := NewGoalRepository(store).Get(ctx, "u1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %T", err)
			}
			if loadErr.UserID != "u1" {
				t.Errorf("Expected user id u1, got %s", loadErr.UserID)
			}
		})
	}
}

func TestGoalRepository_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewGoalRepository(storage.NewMemoryStore())
	_ = repo.Put(ctx, "u1", []models.Goal{{ID: "a", Title: "A", TargetValue: 1}})

	for i := 0; i < 2; i++ {
		if err := repo.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Delete %d failed: %v", i, err)
		}
	}
	goals, _ := repo.Get(ctx, "u1")
	if len(goals) != 0 {
		t.Errorf("Expected no goals after delete, got %d", len(goals))
	}
}
