package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueuerRepository defines the interface for task creation
type EnqueuerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
}

// Enqueuer handles task enqueueing
type Enqueuer struct {
	repo            EnqueuerRepository
	defaultQueue    string
	defaultPriority Priority
	maxAttempts     int
	backoffDelay    time.Duration
	backoffMax      time.Duration
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(repo EnqueuerRepository, opts ...EnqueuerOption) (*Enqueuer, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &enqueuerOptions{
		defaultQueue:    DefaultQueueName,
		defaultPriority: PriorityDefault,
		maxAttempts:     DefaultMaxAttempts,
		backoffDelay:    DefaultBackoffDelay,
		backoffMax:      DefaultBackoffMax,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Enqueuer{
		repo:            repo,
		defaultQueue:    options.defaultQueue,
		defaultPriority: options.defaultPriority,
		maxAttempts:     options.maxAttempts,
		backoffDelay:    options.backoffDelay,
		backoffMax:      options.backoffMax,
	}, nil
}

// Enqueue adds a new task to the queue and returns its id.
// It returns once the task is durable in storage; processing happens later.
func (e *Enqueuer) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, ErrPayloadNil
	}

	options := &enqueueOptions{
		queue:        e.defaultQueue,
		priority:     e.defaultPriority,
		maxAttempts:  e.maxAttempts,
		backoffDelay: e.backoffDelay,
		backoffMax:   e.backoffMax,
	}

	for _, opt := range opts {
		opt(options)
	}

	if !options.priority.Valid() {
		return uuid.Nil, ErrInvalidPriority
	}

	task, err := e.buildTask(payload, options)
	if err != nil {
		return uuid.Nil, err
	}

	if err := e.repo.CreateTask(ctx, task); err != nil {
		return uuid.Nil, errors.Join(ErrTaskCreate,
			fmt.Errorf("task %q in queue %q: %w", task.TaskName, task.Queue, err))
	}

	return task.ID, nil
}

// buildTask constructs a Task from payload and options
func (e *Enqueuer) buildTask(payload any, options *enqueueOptions) (*Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrPayloadMarshal, fmt.Errorf("payload of type %T: %w", payload, err))
	}

	taskName := options.taskName
	if taskName == "" {
		taskName = qualifiedStructName(payload)
	}

	now := time.Now()
	scheduledAt := now
	if options.delay > 0 {
		scheduledAt = scheduledAt.Add(options.delay)
	}

	return &Task{
		ID:           uuid.New(),
		Queue:        options.queue,
		TaskName:     taskName,
		Payload:      payloadBytes,
		Status:       TaskStatusPending,
		Priority:     options.priority,
		MaxAttempts:  options.maxAttempts,
		BackoffDelay: options.backoffDelay,
		BackoffMax:   options.backoffMax,
		ScheduledAt:  scheduledAt,
		CreatedAt:    now,
	}, nil
}
