package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations
type WorkerRepository interface {
	// ClaimTask atomically claims the next available task
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks task as completed. Like the other settle methods it
	// returns ErrTaskLockLost unless workerID still holds the task's lock.
	CompleteTask(ctx context.Context, workerID, taskID uuid.UUID) error

	// FailTask records a failed attempt. Storage reschedules the task with
	// backoff while attempts remain, otherwise moves it to the failed bucket.
	FailTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error

	// DiscardTask records a failed attempt and moves the task to the failed
	// bucket regardless of remaining attempts.
	DiscardTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error

	// ExtendLock extends the lock timeout for long-running tasks
	ExtendLock(ctx context.Context, workerID, taskID uuid.UUID, duration time.Duration) error
}

// Worker processes tasks from the queue
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	pullInterval time.Duration
	lockTimeout  time.Duration
	logger       *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       500 * time.Millisecond,
		lockTimeout:        5 * time.Minute,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       options.queues,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentTasks),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a single task handler
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// RegisterHandlers registers multiple task handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkerStarted
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker. In-flight tasks run to completion.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active tasks to complete",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main processing loop. Every tick it occupies all free slots;
// each slot keeps draining the queue until it comes up empty.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.fillSlots()
		}
	}
}

func (w *Worker) fillSlots() {
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			w.logger.Debug("all worker slots busy",
				slog.String("worker_id", w.workerID.String()))
			return
		}

		w.stopMu.Lock()
		if w.stopping.Load() {
			w.stopMu.Unlock()
			<-w.sem
			return
		}
		w.wg.Add(1)
		w.stopMu.Unlock()

		claimed := make(chan bool, 1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.drain(claimed)
		}()

		// Stop opening slots once the queue comes up empty.
		if !<-claimed {
			return
		}
	}
}

// drain processes tasks until none is ready or the worker is stopping.
// The outcome of the first claim is reported on claimed.
func (w *Worker) drain(claimed chan<- bool) {
	first := true
	report := func(ok bool) {
		if first {
			claimed <- ok
			first = false
		}
	}
	defer report(false)

	for !w.stopping.Load() {
		task, err := w.claim()
		report(task != nil)
		if err != nil {
			w.logger.Error("failed to claim task",
				slog.String("worker_id", w.workerID.String()),
				slog.String("error", err.Error()))
			return
		}
		if task == nil {
			return
		}

		if err := w.processTask(task); err != nil && !errors.Is(err, ErrHandlerNotFound) {
			w.logger.Error("failed to process task",
				slog.String("worker_id", w.workerID.String()),
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}
}

// claim fetches the next ready task. A nil task with nil error means the
// queues are empty.
func (w *Worker) claim() (*Task, error) {
	task, err := w.repo.ClaimTask(w.ctx, w.workerID, w.queues, w.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrNoTaskToClaim) || errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, errors.Join(ErrFailedToGetNextTask, err)
	}
	if task == nil {
		return nil, nil
	}

	w.logger.Debug("claimed task",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		slog.Int("attempt", task.AttemptsMade+1))

	return task, nil
}

// processTask executes a task with its handler
func (w *Worker) processTask(task *Task) (retErr error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			retErr = w.handleTaskFailure(task, fmt.Errorf("panic in handler: %v", r), time.Since(start))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()

	if !ok {
		return w.handleMissingHandler(task)
	}

	// Detached from the worker context so shutdown lets in-flight tasks finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := handler.Handle(ctx, jobFromTask(task))
	duration := time.Since(start)

	if err != nil {
		return w.handleTaskFailure(task, err, duration)
	}

	return w.handleTaskSuccess(task, duration)
}

// handleMissingHandler fails the task without retry; no attempt can succeed
// until a handler for it is deployed.
func (w *Worker) handleMissingHandler(task *Task) error {
	w.logger.Error("no handler registered for task type",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))

	errorMsg := "no handler registered for task type: " + task.TaskName
	if err := w.repo.DiscardTask(context.Background(), w.workerID, task.ID, errorMsg); err != nil {
		return errors.Join(ErrFailedToUpdateTaskStatus, fmt.Errorf("task %s: %w", task.ID, err))
	}

	return ErrHandlerNotFound
}

// handleTaskFailure records the failed attempt. Storage owns the
// retry-or-bury decision for ordinary errors; permanent errors are buried.
func (w *Worker) handleTaskFailure(task *Task, execErr error, duration time.Duration) error {
	attempt := task.AttemptsMade + 1
	permanent := IsPermanent(execErr)
	final := permanent || attempt >= task.MaxAttempts

	level := slog.LevelWarn
	if final {
		level = slog.LevelError
	}
	w.logger.LogAttrs(context.Background(), level, "task failed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", task.MaxAttempts),
		slog.Bool("final", final),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	settle := w.repo.FailTask
	if permanent {
		settle = w.repo.DiscardTask
	}
	if err := settle(context.Background(), w.workerID, task.ID, execErr.Error()); err != nil {
		return errors.Join(ErrFailedToUpdateTaskStatus, fmt.Errorf("task %s: %w", task.ID, err))
	}

	return nil
}

// handleTaskSuccess processes successful task completion
func (w *Worker) handleTaskSuccess(task *Task, duration time.Duration) error {
	if err := w.repo.CompleteTask(context.Background(), w.workerID, task.ID); err != nil {
		return errors.Join(ErrFailedToUpdateTaskStatus, fmt.Errorf("task %s: %w", task.ID, err))
	}

	w.logger.Info("task completed successfully",
		slog.String("worker_id", w.workerID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		slog.Int("attempt", task.AttemptsMade+1),
		slog.Duration("duration", duration))

	return nil
}

// ExtendLockForTask extends the lock timeout for a long-running task
func (w *Worker) ExtendLockForTask(ctx context.Context, taskID uuid.UUID, extension time.Duration) error {
	return w.repo.ExtendLock(ctx, w.workerID, taskID, extension)
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
