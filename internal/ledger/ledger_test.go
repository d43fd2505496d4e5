package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/storage"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func float(v float64) *float64 {
	return &v
}

func newTestLedger(t *testing.T) (*Ledger, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	seq := 0
	var mu sync.Mutex
	l := New(database.NewGoalRepository(store), nil,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("goal-%d", seq)
		}),
	)
	return l, store
}

func runDraft() models.GoalDraft {
	return models.GoalDraft{
		Title:       "Run 500km",
		Category:    models.CategoryFitness,
		TargetValue: float(500),
		Unit:        "km",
	}
}

func TestCreateGoal_ScenarioA(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	g, err := l.CreateGoal(ctx, "u1", runDraft())
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if g.ID != "goal-1" {
		t.Errorf("Expected id goal-1, got %s", g.ID)
	}
	if g.Color != "#FF4B4B" {
		t.Errorf("Expected fitness color, got %s", g.Color)
	}
	if g.StartDate.String() != "2024-01-01" {
		t.Errorf("Expected start date to default to today, got %s", g.StartDate)
	}
	if !g.CreatedAt.Equal(fixedNow) {
		t.Errorf("Expected created_at %v, got %v", fixedNow, g.CreatedAt)
	}
	if p := models.Progress(g); p != 0 {
		t.Errorf("Expected progress 0, got %v", p)
	}
	if s := models.Status(g, fixedNow); s != models.GoalStatusInProgress {
		t.Errorf("Expected in-progress, got %s", s)
	}

	listed := l.ListGoals(ctx, "u1")
	if len(listed) != 1 {
		t.Fatalf("Expected 1 goal listed, got %d", len(listed))
	}
	got := listed[0]
	if got.ID != g.ID || got.Title != "Run 500km" || got.TargetValue != 500 || got.Unit != "km" ||
		got.Category != models.CategoryFitness || got.UserID != "u1" {
		t.Errorf("Listed goal does not match created goal: %+v", got)
	}
}

func TestUpdateProgress_ScenarioB(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	g, _ := l.CreateGoal(ctx, "u1", runDraft())

	updated, err := l.UpdateProgress(ctx, "u1", g.ID, 500)
	if err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	if p := models.Progress(updated); p != 100 {
		t.Errorf("Expected progress 100, got %v", p)
	}
	if s := models.Status(updated, fixedNow); s != models.GoalStatusCompleted {
		t.Errorf("Expected completed, got %s", s)
	}

	stored, _ := l.GetGoal(ctx, "u1", g.ID)
	if stored.CurrentValue != 500 {
		t.Errorf("Expected persisted current value 500, got %v", stored.CurrentValue)
	}

	if _, err := l.UpdateProgress(ctx, "u1", g.ID, math.NaN()); !errors.Is(err, ErrInvalidProgress) {
		t.Errorf("Expected ErrInvalidProgress for NaN, got %v", err)
	}
	if _, err := l.UpdateProgress(ctx, "u1", "missing", 1); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("Expected ErrGoalNotFound, got %v", err)
	}
}

func TestOverdue_ScenarioC(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	draft := runDraft()
	yesterday := models.Today(fixedNow).AddDays(-1)
	draft.EndDate = &yesterday
	draft.CurrentValue = 10

	g, err := l.CreateGoal(ctx, "u1", draft)
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if s := models.Status(g, fixedNow); s != models.GoalStatusOverdue {
		t.Errorf("Expected overdue, got %s", s)
	}
}

func TestCreateGoal_NewestFirst(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		d := runDraft()
		d.Title = title
		if _, err := l.CreateGoal(ctx, "u1", d); err != nil {
			t.Fatalf("CreateGoal failed: %v", err)
		}
	}

	goals := l.ListGoals(ctx, "u1")
	want := []string{"third", "second", "first"}
	for i, g := range goals {
		if g.Title != want[i] {
			t.Errorf("Expected goal %d to be %s, got %s", i, want[i], g.Title)
		}
	}
}

func TestCreateGoal_InvalidDraft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		draft models.GoalDraft
	}{
		{name: "empty title", draft: models.GoalDraft{TargetValue: float(5)}},
		{name: "whitespace title", draft: models.GoalDraft{Title: "   ", TargetValue: float(5)}},
		{name: "missing target", draft: models.GoalDraft{Title: "Read"}},
		{name: "zero target", draft: models.GoalDraft{Title: "Read", TargetValue: float(0)}},
		{name: "negative target", draft: models.GoalDraft{Title: "Read", TargetValue: float(-1)}},
		{name: "NaN target", draft: models.GoalDraft{Title: "Read", TargetValue: float(math.NaN())}},
		{name: "infinite target", draft: models.GoalDraft{Title: "Read", TargetValue: float(math.Inf(1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, store := newTestLedger(t)
			ctx := context.Background()
			g, err := l.CreateGoal(ctx, "u1", tt.draft)
			if !errors.Is(err, ErrInvalidDraft) {
				t.Errorf("Expected ErrInvalidDraft, got %v", err)
			}
			if g != nil {
				t.Errorf("Expected no goal, got %+v", g)
			}
			if _, err := store.Get(ctx, "goaltracker-goals-u1"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Expected nothing persisted, got %v", err)
			}
		})
	}
}

func TestCreateGoal_KeepsDraftFields(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	start := models.NewDate(2023, 12, 1)
	end := models.NewDate(2024, 6, 30)
	draft := models.GoalDraft{
		Title:        "  Save money  ",
		Description:  "Emergency fund",
		Category:     models.CategoryFinance,
		TargetValue:  float(10000),
		CurrentValue: 2500,
		Unit:         "$",
		StartDate:    &start,
		EndDate:      &end,
		Subtasks:     []models.Subtask{{Title: "Open account", DaysFromStart: -3}},
	}

	g, err := l.CreateGoal(context.Background(), "u1", draft)
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if g.Title != "Save money" {
		t.Errorf("Expected trimmed title, got %q", g.Title)
	}
	if g.StartDate != start || g.EndDate == nil || *g.EndDate != end {
		t.Errorf("Expected dates from draft, got %s..%v", g.StartDate, g.EndDate)
	}
	if g.CurrentValue != 2500 {
		t.Errorf("Expected pre-existing progress 2500, got %v", g.CurrentValue)
	}
	if g.Color != "#FBBF24" {
		t.Errorf("Expected finance color, got %s", g.Color)
	}
	if g.Subtasks[0].DaysFromStart != 0 {
		t.Errorf("Expected negative offset clamped to 0, got %d", g.Subtasks[0].DaysFromStart)
	}
}

func TestCreateGoal_DefaultCategory(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	g, err := l.CreateGoal(context.Background(), "u1", models.GoalDraft{Title: "Habit", TargetValue: float(30)})
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if g.Category != models.CategoryPersonal || g.Color != "#58CC02" {
		t.Errorf("Expected personal category and color, got %s %s", g.Category, g.Color)
	}
}

func TestDeleteGoal_Idempotent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	keep, _ := l.CreateGoal(ctx, "u1", runDraft())
	drop, _ := l.CreateGoal(ctx, "u1", runDraft())

	for i := 0; i < 2; i++ {
		if err := l.DeleteGoal(ctx, "u1", drop.ID); err != nil {
			t.Fatalf("DeleteGoal call %d failed: %v", i+1, err)
		}
		goals := l.ListGoals(ctx, "u1")
		if len(goals) != 1 || goals[0].ID != keep.ID {
			t.Errorf("Expected only %s after delete %d, got %+v", keep.ID, i+1, goals)
		}
	}

	if err := l.DeleteGoal(ctx, "nobody", "x"); err != nil {
		t.Errorf("Expected delete on empty collection to succeed, got %v", err)
	}
}

func TestToggleSubtask(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	draft := runDraft()
	draft.Subtasks = []models.Subtask{{Title: "a", DaysFromStart: 7}, {Title: "b", DaysFromStart: 14}}
	g, _ := l.CreateGoal(ctx, "u1", draft)

	updated, err := l.ToggleSubtask(ctx, "u1", g.ID, 1)
	if err != nil {
		t.Fatalf("ToggleSubtask failed: %v", err)
	}
	if !updated.Subtasks[1].Completed || updated.Subtasks[0].Completed {
		t.Errorf("Expected only sub-task 1 completed, got %+v", updated.Subtasks)
	}
	if updated.CurrentValue != 0 {
		t.Errorf("Expected toggling to leave current value alone, got %v", updated.CurrentValue)
	}

	updated, _ = l.ToggleSubtask(ctx, "u1", g.ID, 1)
	if updated.Subtasks[1].Completed {
		t.Error("Expected second toggle to clear completion")
	}

	for _, idx := range []int{-1, 2, 100} {
		if _, err := l.ToggleSubtask(ctx, "u1", g.ID, idx); !errors.Is(err, ErrSubtaskNotFound) {
			t.Errorf("Expected ErrSubtaskNotFound for index %d, got %v", idx, err)
		}
	}
	if _, err := l.ToggleSubtask(ctx, "u1", "missing", 0); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("Expected ErrGoalNotFound, got %v", err)
	}
}

func TestAttachSubtasks(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	g, _ := l.CreateGoal(ctx, "u1", runDraft())

	batch := []models.Subtask{{Title: "a", DaysFromStart: 14}, {Title: "b", DaysFromStart: 7}}
	updated, err := l.AttachSubtasks(ctx, "u1", g.ID, batch)
	if err != nil {
		t.Fatalf("AttachSubtasks failed: %v", err)
	}
	if len(updated.Subtasks) != 2 || updated.Subtasks[0].Title != "a" {
		t.Errorf("Expected batch stored in given order, got %+v", updated.Subtasks)
	}

	if _, err := l.AttachSubtasks(ctx, "u1", g.ID, batch); !errors.Is(err, ErrSubtasksExist) {
		t.Errorf("Expected ErrSubtasksExist, got %v", err)
	}
}

func TestCorruptData(t *testing.T) {
	t.Parallel()

	l, store := newTestLedger(t)
	ctx := context.Background()
	_ = store.Set(ctx, "goaltracker-goals-u1", []byte("{not json"))

	if goals := l.ListGoals(ctx, "u1"); len(goals) != 0 {
		t.Errorf("Expected ListGoals to swallow load error, got %d goals", len(goals))
	}
	if _, err := l.LoadGoals(ctx, "u1"); !errors.Is(err, database.ErrCorruptData) {
		t.Errorf("Expected LoadGoals to surface ErrCorruptData, got %v", err)
	}
	if _, err := l.CreateGoal(ctx, "u1", runDraft()); !errors.Is(err, database.ErrCorruptData) {
		t.Errorf("Expected CreateGoal to refuse overwrite, got %v", err)
	}
	raw, _ := store.Get(ctx, "goaltracker-goals-u1")
	if string(raw) != "{not json" {
		t.Errorf("Expected corrupt data untouched, got %s", raw)
	}

	if err := l.ResetGoals(ctx, "u1"); err != nil {
		t.Fatalf("ResetGoals failed: %v", err)
	}
	if _, err := l.CreateGoal(ctx, "u1", runDraft()); err != nil {
		t.Errorf("Expected create to succeed after reset, got %v", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()
	done := runDraft()
	done.CurrentValue = 500
	_, _ = l.CreateGoal(ctx, "u1", done)
	_, _ = l.CreateGoal(ctx, "u1", runDraft())

	stats, err := l.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Active != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestConcurrentCreates(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.CreateGoal(ctx, "u1", runDraft())
		}()
	}
	wg.Wait()

	if n := len(l.ListGoals(ctx, "u1")); n != 20 {
		t.Errorf("Expected 20 goals after concurrent creates, got %d", n)
	}
}
