package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements all queue repository interfaces for testing and local development
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*memoryTask
	seq   uint64

	// Lock management
	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// memoryTask pairs a task with its enqueue sequence, which breaks ordering
// ties between tasks that share priority and availability time.
type memoryTask struct {
	Task
	seq uint64
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		tasks: make(map[uuid.UUID]*memoryTask),
		done:  make(chan struct{}),
	}

	ms.lockTicker = time.NewTicker(time.Second)
	go ms.lockExpirationManager()

	return ms
}

// Close stops the background goroutines
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

// CreateTask implements EnqueuerRepository
func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.ID)
	}

	ms.seq++
	ms.tasks[task.ID] = &memoryTask{Task: *task, seq: ms.seq}

	return nil
}

// ClaimTask implements WorkerRepository. Queues are tried in the given order;
// within a queue the lowest priority value wins, then the earliest
// availability time, then enqueue order.
func (ms *MemoryStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	ms.expireLocksAt(now)

	for _, q := range queues {
		var best *memoryTask
		for _, t := range ms.tasks {
			if t.Queue != q || t.Status != TaskStatusPending || t.ScheduledAt.After(now) {
				continue
			}
			if best == nil || runsBefore(t, best) {
				best = t
			}
		}
		if best == nil {
			continue
		}

		lockUntil := now.Add(lockDuration)
		best.Status = TaskStatusProcessing
		best.LockedUntil = &lockUntil
		best.LockedBy = &workerID

		taskCopy := best.Task
		return &taskCopy, nil
	}

	return nil, ErrNoTaskToClaim
}

func runsBefore(a, b *memoryTask) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.seq < b.seq
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(ctx context.Context, workerID, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.owned(workerID, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil

	return nil
}

// FailTask implements WorkerRepository
func (ms *MemoryStorage) FailTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error {
	return ms.fail(workerID, taskID, errorMsg, false)
}

// DiscardTask implements WorkerRepository
func (ms *MemoryStorage) DiscardTask(ctx context.Context, workerID, taskID uuid.UUID, errorMsg string) error {
	return ms.fail(workerID, taskID, errorMsg, true)
}

func (ms *MemoryStorage) fail(workerID, taskID uuid.UUID, errorMsg string, terminal bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.owned(workerID, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.AttemptsMade++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if terminal || task.Exhausted() {
		task.Status = TaskStatusFailed
		task.ProcessedAt = &now
		return nil
	}

	task.Status = TaskStatusPending
	task.ScheduledAt = now.Add(task.RetryDelay())

	return nil
}

// ExtendLock implements WorkerRepository
func (ms *MemoryStorage) ExtendLock(ctx context.Context, workerID, taskID uuid.UUID, duration time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, err := ms.owned(workerID, taskID)
	if err != nil {
		return err
	}

	lockUntil := time.Now().Add(duration)
	task.LockedUntil = &lockUntil

	return nil
}

// GetTask returns a copy of the task with the given id.
func (ms *MemoryStorage) GetTask(ctx context.Context, taskID uuid.UUID) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	task, ok := ms.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	taskCopy := task.Task
	return &taskCopy, nil
}

// Stats implements StatsRepository
func (ms *MemoryStorage) Stats(ctx context.Context, queue string) (Stats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	now := time.Now()
	stats := Stats{Queue: queue}
	var failed []*memoryTask

	for _, t := range ms.tasks {
		if t.Queue != queue {
			continue
		}
		switch t.Status {
		case TaskStatusPending:
			if t.ScheduledAt.After(now) {
				stats.Delayed++
			} else {
				stats.Waiting++
			}
		case TaskStatusProcessing:
			stats.Active++
		case TaskStatusCompleted:
			stats.Completed++
		case TaskStatusFailed:
			stats.Failed++
			failed = append(failed, t)
		}
	}

	slices.SortFunc(failed, func(a, b *memoryTask) int {
		return b.ProcessedAt.Compare(*a.ProcessedAt)
	})
	for _, t := range failed[:min(len(failed), recentFailedLimit)] {
		stats.RecentFailed = append(stats.RecentFailed, failedEntry(&t.Task))
	}

	return stats, nil
}

// PurgeTasks implements CleanerRepository
func (ms *MemoryStorage) PurgeTasks(ctx context.Context, queue string, status TaskStatus, before time.Time) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var n int64
	for id, t := range ms.tasks {
		if t.Queue != queue || t.Status != status || t.ProcessedAt == nil {
			continue
		}
		if t.ProcessedAt.Before(before) {
			delete(ms.tasks, id)
			n++
		}
	}
	return n, nil
}

// owned returns the task if workerID still holds its lock. Once an expired
// lock is released or the task is claimed again, the old worker is refused.
func (ms *MemoryStorage) owned(workerID, taskID uuid.UUID) (*memoryTask, error) {
	task, exists := ms.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if task.Status != TaskStatusProcessing {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotProcessing, taskID)
	}
	if task.LockedBy == nil || *task.LockedBy != workerID {
		return nil, fmt.Errorf("%w: %s", ErrTaskLockLost, taskID)
	}
	return task, nil
}

// lockExpirationManager recovers tasks from dead workers. Without it a task
// claimed by a crashed worker would stay in processing forever.
func (ms *MemoryStorage) lockExpirationManager() {
	for {
		select {
		case <-ms.lockTicker.C:
			ms.mu.Lock()
			ms.expireLocksAt(time.Now())
			ms.mu.Unlock()
		case <-ms.done:
			return
		}
	}
}

// expireLocksAt resets processing tasks whose lock has passed back to
// pending. Attempts are left untouched. Caller must hold the write lock.
func (ms *MemoryStorage) expireLocksAt(now time.Time) {
	for _, task := range ms.tasks {
		if task.Status == TaskStatusProcessing && task.LockedUntil != nil && task.LockedUntil.Before(now) {
			task.Status = TaskStatusPending
			task.LockedUntil = nil
			task.LockedBy = nil
		}
	}
}
