package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSubtaskGeneration asks the assistant for a sub-task plan for one goal
	JobTypeSubtaskGeneration JobType = "subtask_generation"
)

// DefaultJobTTL bounds how long a queued job stays useful
const DefaultJobTTL = 10 * time.Minute

// Job represents a job in the queue.
// Jobs are attempted once; failures are dead-lettered rather than retried.
type Job struct {
	ID        uuid.UUID         `json:"id"`
	Type      JobType           `json:"type"`
	UserID    string            `json:"user_id"`
	GoalID    string            `json:"goal_id"`
	NotAfter  *time.Time        `json:"not_after,omitempty"`
	Trace     map[string]string `json:"trace,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewSubtaskJob creates a sub-task generation job that expires after ttl (0 = never)
func NewSubtaskJob(userID, goalID string, now time.Time, ttl time.Duration) *Job {
	job := &Job{
		ID:        uuid.New(),
		Type:      JobTypeSubtaskGeneration,
		UserID:    userID,
		GoalID:    goalID,
		CreatedAt: now,
	}
	if ttl > 0 {
		notAfter := now.Add(ttl)
		job.NotAfter = &notAfter
	}
	return job
}

// IsExpired checks if the job has expired at now
func (j *Job) IsExpired(now time.Time) bool {
	if j.NotAfter == nil {
		return false
	}
	return now.After(*j.NotAfter)
}
