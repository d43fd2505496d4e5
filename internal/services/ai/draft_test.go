package ai

import (
	"errors"
	"testing"

	"github.com/benvon/goalquest/internal/models"
)

func TestExtractGoalDraft(t *testing.T) {
	t.Parallel()

	reply := `Great choice! Here's your goal:

**Goal Title:** Run a half marathon
**Category:** fitness
**Target:** 21.1 km
**Deadline:** 2025-05-01
**Why:** Build endurance and confidence.
**Sub-tasks:**
1. Week 1: Run 3 times - keep it easy
2. Join a running club
3. Complete a 10k race in 6 weeks

Want to add this goal?`

	draft, err := ExtractGoalDraft(reply)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if draft.Title != "Run a half marathon" {
		t.Errorf("Unexpected title %q", draft.Title)
	}
	if draft.Category != models.CategoryFitness {
		t.Errorf("Unexpected category %q", draft.Category)
	}
	if draft.TargetValue == nil || *draft.TargetValue != 21.1 || draft.Unit != "km" {
		t.Errorf("Unexpected target %v %q", draft.TargetValue, draft.Unit)
	}
	if draft.EndDate == nil || draft.EndDate.String() != "2025-05-01" {
		t.Errorf("Unexpected deadline %v", draft.EndDate)
	}
	if draft.Description != "Build endurance and confidence." {
		t.Errorf("Unexpected description %q", draft.Description)
	}
	if len(draft.Subtasks) != 3 {
		t.Fatalf("Expected 3 sub-tasks, got %d", len(draft.Subtasks))
	}
	wantDays := []int{7, 14, 42}
	for i, s := range draft.Subtasks {
		if s.DaysFromStart != wantDays[i] {
			t.Errorf("Sub-task %d: expected %d days, got %d", i, wantDays[i], s.DaysFromStart)
		}
	}
	if draft.Subtasks[0].Title != "Week 1: Run 3 times" || draft.Subtasks[0].Description != "keep it easy" {
		t.Errorf("Unexpected first sub-task %+v", draft.Subtasks[0])
	}
}

func TestExtractGoalDraft_Currency(t *testing.T) {
	t.Parallel()

	draft, err := ExtractGoalDraft("**Goal Title:** Emergency fund\n**Category:** Finance\n**Target:** $10,000\n")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if *draft.TargetValue != 10000 || draft.Unit != "$" || draft.Category != models.CategoryFinance {
		t.Errorf("Unexpected draft %+v", draft)
	}
}

func TestExtractGoalDraft_NoGoal(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{
		"You're doing great! Want to set a new goal?",
		"**Goal Title:** Read more\n**Target:** lots",
	} {
		if _, err := ExtractGoalDraft(reply); !errors.Is(err, ErrNoGoalInReply) {
			t.Errorf("Expected ErrNoGoalInReply for %q, got %v", reply, err)
		}
	}
}
