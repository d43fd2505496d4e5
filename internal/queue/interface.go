package queue

import (
	"context"
	"errors"
	"time"
)

// ErrQueueUnavailable is returned when the queue connection is closed
var ErrQueueUnavailable = errors.New("job queue unavailable")

// MessageInterface defines the interface for queue messages
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error
	// Consume delivers messages until ctx is cancelled or the connection drops.
	// The caller acknowledges each message. prefetchCount bounds unacknowledged messages.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)
	// Close closes the queue connection
	Close() error
	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
