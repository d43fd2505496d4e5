package ai

import (
	"bufio"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/goalquest/internal/models"
)

// ErrNoGoalInReply is returned when a chat reply does not follow the goal format
var ErrNoGoalInReply = errors.New("reply does not contain a goal draft")

var (
	fieldLine   = regexp.MustCompile(`^\**\s*(Goal Title|Category|Target|Deadline|Why|Sub-tasks)\s*:\s*\**\s*(.*)$`)
	stepLine    = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)
	targetValue = regexp.MustCompile(`^\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(.*)$`)
	timeframe   = regexp.MustCompile(`(?i)\b(day|week|month)s?\s+(\d+)\b|\b(\d+)\s*(day|week|month)s?\b`)
)

// ExtractGoalDraft reads a chat reply written in the **Goal Title:** / **Category:** /
// **Target:** / **Deadline:** / **Why:** / **Sub-tasks:** format into a draft.
// Title and a numeric target are required; other fields are best effort.
func ExtractGoalDraft(reply string) (*models.GoalDraft, error) {
	draft := &models.GoalDraft{Category: models.CategoryPersonal}
	inSteps := false

	scanner := bufio.NewScanner(strings.NewReader(reply))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := fieldLine.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(strings.Trim(m[2], "*"))
			inSteps = m[1] == "Sub-tasks"
			applyField(draft, m[1], value)
			continue
		}

		if inSteps {
			if m := stepLine.FindStringSubmatch(line); m != nil {
				draft.Subtasks = append(draft.Subtasks, stepSubtask(m[2], len(draft.Subtasks)))
				continue
			}
			inSteps = false
		}
	}

	if strings.TrimSpace(draft.Title) == "" || draft.TargetValue == nil {
		return nil, ErrNoGoalInReply
	}
	return draft, nil
}

func applyField(draft *models.GoalDraft, field, value string) {
	switch field {
	case "Goal Title":
		draft.Title = value
	case "Category":
		c := models.Category(strings.ToLower(strings.Trim(value, "[] .")))
		if c.Valid() {
			draft.Category = c
		}
	case "Target":
		m := targetValue.FindStringSubmatch(value)
		if m == nil {
			return
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || v <= 0 {
			return
		}
		draft.TargetValue = &v
		draft.Unit = strings.TrimSpace(m[2])
		if draft.Unit == "" && strings.HasPrefix(value, "$") {
			draft.Unit = "$"
		}
	case "Deadline":
		if len(value) >= len(models.DateLayout) {
			if d, err := models.ParseDate(value[:len(models.DateLayout)]); err == nil {
				draft.EndDate = &d
			}
		}
	case "Why":
		draft.Description = value
	}
}

// stepSubtask converts a numbered step into a sub-task. A timeframe such as
// "week 2" or "3 days" sets the offset; otherwise steps are spaced a week apart.
func stepSubtask(text string, index int) models.Subtask {
	text = strings.TrimSpace(strings.Trim(text, "*"))
	days := 7 * (index + 1)

	if m := timeframe.FindStringSubmatch(text); m != nil {
		unit, num := m[1], m[2]
		if unit == "" {
			unit, num = m[4], m[3]
		}
		if n, err := strconv.Atoi(num); err == nil {
			switch strings.ToLower(unit) {
			case "day":
				days = n
			case "week":
				days = n * 7
			case "month":
				days = n * 30
			}
		}
	}

	title, description := text, ""
	if before, after, ok := strings.Cut(text, " - "); ok {
		title, description = strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return models.Subtask{Title: title, Description: description, DaysFromStart: days}
}
