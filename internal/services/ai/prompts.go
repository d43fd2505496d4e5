package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benvon/goalquest/internal/models"
)

const chatSystemPromptTemplate = `You are a SMART Goal Creation AI Assistant. Your PRIMARY and MAIN role is to help users CREATE concrete, actionable goals.

CRITICAL RULES:
1. When a user mentions wanting to do something, achieve something, or improve something - IMMEDIATELY create a goal for them
2. DO NOT have general conversations - focus ONLY on goal creation and tracking
3. Always be direct and action-oriented

REQUIRED FORMAT for goal creation (use this for EVERY goal-related request):

**Goal Title:** [Clear, action-oriented title - be specific]
**Category:** [Choose ONE: personal/health/career/finance/education/fitness]
**Target:** [specific number] [unit - be creative: km, books, hours, days, workouts, etc]
**Deadline:** [YYYY-MM-DD - suggest realistic deadline based on goal]
**Why:** [Motivational reason in 1-2 sentences]
**Sub-tasks:**
1. [Concrete first step with timeframe]
2. [Second actionable step]
3. [Third milestone]
4. [Fourth checkpoint - if needed]
5. [Final preparation - if needed]

EXAMPLES:
- User says "I want to get fit" → Create a fitness goal with specific targets
- User says "I should read more" → Create a reading goal with book count
- User says "need to save money" → Create a finance goal with $ amount

For progress reviews or motivation requests: Keep response to 2 sentences max, then ask if they want to create a new goal.

User context:
- User name: %s
- Current goals: %s

BE PROACTIVE: Turn every user desire into a trackable goal. Less talk, more action!`

const subtaskSystemPrompt = "You are a helpful assistant that breaks down goals into actionable sub-tasks. Always respond with valid JSON only, no markdown formatting."

const subtaskPromptTemplate = `Generate 5-7 actionable sub-tasks for the following goal. Each sub-task should be specific, measurable, and have a realistic timeline (in days from start).

Goal: %s
Description: %s
Category: %s
Target: %s %s
Deadline: %s

Return ONLY a JSON array with this exact structure (no markdown, no explanations):
[
  {
    "title": "Sub-task title",
    "description": "Brief description",
    "daysFromStart": 7,
    "completed": false
  }
]`

// formatNumber renders a quantity the shortest way, so 500 prints as "500" and 2.5 as "2.5"
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GoalsContext summarizes goals for the chat system prompt, one line per goal
func GoalsContext(goals []models.Goal) string {
	if len(goals) == 0 {
		return "\n\nUser has no goals set yet."
	}

	lines := make([]string, 0, len(goals))
	for i := range goals {
		g := &goals[i]
		lines = append(lines, fmt.Sprintf("- %s (%s): %.1f%% complete (%s/%s %s)",
			g.Title,
			g.Category,
			models.Progress(g),
			formatNumber(g.CurrentValue),
			formatNumber(g.TargetValue),
			g.Unit,
		))
	}
	return "\n\nUser's current goals:\n" + strings.Join(lines, "\n")
}

// ChatSystemPrompt builds the system instruction for a chat turn
func ChatSystemPrompt(user *models.User, goals []models.Goal) string {
	return fmt.Sprintf(chatSystemPromptTemplate, user.DisplayName("User"), GoalsContext(goals))
}

// SubtaskPrompt builds the user message asking for a strict JSON sub-task array
func SubtaskPrompt(draft models.GoalDraft) string {
	description := draft.Description
	if strings.TrimSpace(description) == "" {
		description = "No description provided"
	}
	category := string(draft.Category)
	if category == "" {
		category = string(models.CategoryPersonal)
	}
	target := ""
	if draft.TargetValue != nil {
		target = formatNumber(*draft.TargetValue)
	}
	deadline := "No deadline set"
	if draft.EndDate != nil && !draft.EndDate.IsZero() {
		deadline = draft.EndDate.String()
	}
	return fmt.Sprintf(subtaskPromptTemplate,
		strings.TrimSpace(draft.Title),
		description,
		category,
		target,
		draft.Unit,
		deadline,
	)
}
