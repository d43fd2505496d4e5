package models

import (
	"math"
	"time"
)

// GoalStatus is the derived lifecycle state of a goal
type GoalStatus string

const (
	GoalStatusInProgress GoalStatus = "in-progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusOverdue    GoalStatus = "overdue"
)

// Goal represents a user-defined target quantity
type Goal struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	TargetValue  float64   `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Unit         string    `json:"unit"`
	StartDate    Date      `json:"start_date"`
	EndDate      *Date     `json:"end_date"`
	Color        string    `json:"color"`
	Subtasks     []Subtask `json:"subtasks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subtask is a dated checklist item attached to a goal
type Subtask struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	DaysFromStart int    `json:"days_from_start"`
	Completed     bool   `json:"completed"`
}

// TargetDate derives the sub-task due date from the goal start date
func (s Subtask) TargetDate(start Date) Date {
	return start.AddDays(s.DaysFromStart)
}

// GoalDraft is the caller-supplied input for creating a goal.
// TargetValue is a pointer so that an absent value can be told apart from zero.
type GoalDraft struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	TargetValue  *float64  `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Unit         string    `json:"unit"`
	StartDate    *Date     `json:"start_date,omitempty"`
	EndDate      *Date     `json:"end_date,omitempty"`
	Subtasks     []Subtask `json:"subtasks,omitempty"`
}

// DraftFromGoal rebuilds a draft from an existing goal, used when asking for sub-tasks later
func DraftFromGoal(g *Goal) GoalDraft {
	target := g.TargetValue
	start := g.StartDate
	return GoalDraft{
		Title:        g.Title,
		Description:  g.Description,
		Category:     g.Category,
		TargetValue:  &target,
		CurrentValue: g.CurrentValue,
		Unit:         g.Unit,
		StartDate:    &start,
		EndDate:      g.EndDate,
	}
}

// Progress returns the completion percentage clamped to [0, 100]
func Progress(g *Goal) float64 {
	if g == nil || g.TargetValue <= 0 || math.IsNaN(g.TargetValue) {
		return 0
	}
	p := g.CurrentValue / g.TargetValue * 100
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Status derives the goal status at the given instant.
// Completion wins over a missed deadline.
func Status(g *Goal, now time.Time) GoalStatus {
	if Progress(g) >= 100 {
		return GoalStatusCompleted
	}
	if g.EndDate != nil && !g.EndDate.IsZero() && g.EndDate.Before(now) {
		return GoalStatusOverdue
	}
	return GoalStatusInProgress
}

// CompletedSubtasks counts the completed sub-tasks of a goal
func CompletedSubtasks(g *Goal) int {
	n := 0
	for _, s := range g.Subtasks {
		if s.Completed {
			n++
		}
	}
	return n
}

// SubtaskView is a sub-task with its derived target date
type SubtaskView struct {
	Subtask
	Index      int  `json:"index"`
	TargetDate Date `json:"target_date"`
}

// GoalView is a goal decorated with the values derived at read time
type GoalView struct {
	Goal
	Subtasks          []SubtaskView `json:"subtasks"`
	Progress          float64       `json:"progress"`
	Status            GoalStatus    `json:"status"`
	CompletedSubtasks int           `json:"completed_subtasks"`
}

// NewGoalView derives progress, status and sub-task dates for display
func NewGoalView(g Goal, now time.Time) GoalView {
	subtasks := make([]SubtaskView, 0, len(g.Subtasks))
	for i, s := range g.Subtasks {
		subtasks = append(subtasks, SubtaskView{
			Subtask:    s,
			Index:      i,
			TargetDate: s.TargetDate(g.StartDate),
		})
	}
	return GoalView{
		Goal:              g,
		Subtasks:          subtasks,
		Progress:          Progress(&g),
		Status:            Status(&g, now),
		CompletedSubtasks: CompletedSubtasks(&g),
	}
}
