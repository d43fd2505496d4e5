package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/benvon/goalquest/internal/models"
)

var (
	jsonFence  = regexp.MustCompile("```json\\n?")
	plainFence = regexp.MustCompile("```\\n?")
)

// StripCodeFence removes markdown code fences the model may add despite instructions
func StripCodeFence(content string) string {
	content = jsonFence.ReplaceAllString(content, "")
	content = plainFence.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// ParseSubtasks decodes a model reply into sub-tasks. The reply must be a non-empty
// JSON array of objects; individual fields are coerced leniently and order is kept.
func ParseSubtasks(content string) ([]models.Subtask, error) {
	body := StripCodeFence(content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedResponse)
	}

	subtasks := make([]models.Subtask, 0, len(entries))
	for i, entry := range entries {
		var sub models.LenientSubtask
		if string(entry) == "null" {
			return nil, fmt.Errorf("%w: entry %d is null", ErrMalformedResponse, i)
		}
		if err := json.Unmarshal(entry, &sub); err != nil {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrMalformedResponse, i)
		}
		subtasks = append(subtasks, models.Subtask(sub))
	}
	return subtasks, nil
}
