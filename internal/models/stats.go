package models

import "time"

// GoalStats summarizes a user's goals at a point in time
type GoalStats struct {
	Total             int `json:"total"`
	Active            int `json:"active"`
	Completed         int `json:"completed"`
	Overdue           int `json:"overdue"`
	SubtasksTotal     int `json:"subtasks_total"`
	SubtasksCompleted int `json:"subtasks_completed"`
}

// ComputeStats buckets goals by their status at now
func ComputeStats(goals []Goal, now time.Time) GoalStats {
	stats := GoalStats{Total: len(goals)}
	for i := range goals {
		g := &goals[i]
		switch Status(g, now) {
		case GoalStatusCompleted:
			stats.Completed++
		case GoalStatusOverdue:
			stats.Overdue++
		default:
			stats.Active++
		}
		stats.SubtasksTotal += len(g.Subtasks)
		stats.SubtasksCompleted += CompletedSubtasks(g)
	}
	return stats
}
