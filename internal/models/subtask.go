package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LenientSubtask decodes a sub-task whose fields may carry loose JSON types:
// numbers as strings, fractional offsets, missing fields. Both model replies
// and documents written by the browser client take this shape.
type LenientSubtask Subtask

// UnmarshalJSON coerces each field; a non-object value is still an error
func (s *LenientSubtask) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw struct {
		Title         any `json:"title"`
		Description   any `json:"description"`
		DaysFromStart any `json:"daysFromStart"`
		Completed     any `json:"completed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = LenientSubtask{
		Title:         looseString(raw.Title),
		Description:   looseString(raw.Description),
		DaysFromStart: looseDays(raw.DaysFromStart),
		Completed:     looseBool(raw.Completed),
	}
	return nil
}

func looseString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// looseDays coerces an offset to a non-negative whole number of days
func looseDays(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(f))
}

func looseBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	}
	return false
}
