package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is the default queue name used when no queue is specified
const DefaultQueueName = "default"

// Retry and retention defaults.
const (
	DefaultMaxAttempts        = 3
	DefaultBackoffDelay       = 2 * time.Second
	DefaultBackoffMax         = time.Minute
	DefaultCompletedRetention = 24 * time.Hour
	DefaultFailedRetention    = 7 * 24 * time.Hour
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Priority orders tasks within a queue. Lower values are served first.
type Priority int8

const (
	PriorityHigh    Priority = 1
	PriorityMedium  Priority = 5
	PriorityLow     Priority = 10
	PriorityLowest  Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLowest
}

// Task represents a task in the queue
type Task struct {
	ID           uuid.UUID     `json:"id"`
	Queue        string        `json:"queue"`
	TaskName     string        `json:"task_name"`
	Payload      []byte        `json:"payload,omitempty"`
	Status       TaskStatus    `json:"status"`
	Priority     Priority      `json:"priority"`
	AttemptsMade int           `json:"attempts_made"`
	MaxAttempts  int           `json:"max_attempts"`
	BackoffDelay time.Duration `json:"backoff_delay"`
	BackoffMax   time.Duration `json:"backoff_max"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	LockedUntil  *time.Time    `json:"locked_until,omitempty"`
	LockedBy     *uuid.UUID    `json:"locked_by,omitempty"`
	ProcessedAt  *time.Time    `json:"processed_at,omitempty"`
	Error        *string       `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// RetryDelay returns the backoff before the next attempt, given the attempts
// already made: base, 2*base, 4*base and so on, capped at BackoffMax.
func (t *Task) RetryDelay() time.Duration {
	base := t.BackoffDelay
	if base <= 0 {
		base = DefaultBackoffDelay
	}
	limit := t.BackoffMax
	if limit <= 0 {
		limit = DefaultBackoffMax
	}

	delay := base
	for i := 1; i < t.AttemptsMade; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return min(delay, limit)
}

// Exhausted reports whether no attempts remain.
func (t *Task) Exhausted() bool {
	return t.AttemptsMade >= t.MaxAttempts
}

// Job is the read-only view of a claimed task passed to handlers.
type Job struct {
	ID           uuid.UUID
	Queue        string
	Name         string
	Payload      json.RawMessage
	Priority     Priority
	AttemptsMade int
	MaxAttempts  int
	CreatedAt    time.Time
}

// Attempt is the 1-based number of the attempt in progress.
func (j Job) Attempt() int {
	return j.AttemptsMade + 1
}

// IsFinalAttempt reports whether a failure now exhausts the task.
func (j Job) IsFinalAttempt() bool {
	return j.Attempt() >= j.MaxAttempts
}

func jobFromTask(t *Task) Job {
	return Job{
		ID:           t.ID,
		Queue:        t.Queue,
		Name:         t.TaskName,
		Payload:      t.Payload,
		Priority:     t.Priority,
		AttemptsMade: t.AttemptsMade,
		MaxAttempts:  t.MaxAttempts,
		CreatedAt:    t.CreatedAt,
	}
}

// Stats is a point-in-time snapshot of a queue.
type Stats struct {
	Queue        string        `json:"queue"`
	Waiting      int64         `json:"waiting"`
	Delayed      int64         `json:"delayed"`
	Active       int64         `json:"active"`
	Completed    int64         `json:"completed"`
	Failed       int64         `json:"failed"`
	RecentFailed []FailedEntry `json:"recent_failed,omitempty"`
}

// FailedEntry describes a task that ended in the failed bucket.
type FailedEntry struct {
	ID           uuid.UUID `json:"id"`
	TaskName     string    `json:"task_name"`
	Error        string    `json:"error"`
	AttemptsMade int       `json:"attempts_made"`
	FailedAt     time.Time `json:"failed_at"`
}

// recentFailedLimit caps Stats.RecentFailed.
const recentFailedLimit = 5

func failedEntry(t *Task) FailedEntry {
	e := FailedEntry{
		ID:           t.ID,
		TaskName:     t.TaskName,
		AttemptsMade: t.AttemptsMade,
	}
	if t.Error != nil {
		e.Error = *t.Error
	}
	if t.ProcessedAt != nil {
		e.FailedAt = *t.ProcessedAt
	}
	return e
}
