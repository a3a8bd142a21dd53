package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

func newTask(q string, priority queue.Priority, scheduledAt time.Time) *queue.Task {
	return &queue.Task{
		ID:           uuid.New(),
		Queue:        q,
		TaskName:     "test-task",
		Payload:      []byte(`{}`),
		Status:       queue.TaskStatusPending,
		Priority:     priority,
		MaxAttempts:  3,
		BackoffDelay: 2 * time.Second,
		BackoffMax:   time.Minute,
		ScheduledAt:  scheduledAt,
		CreatedAt:    time.Now(),
	}
}

func TestMemoryStorage_CreateTask(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	task := newTask(queue.DefaultQueueName, queue.PriorityMedium, time.Now())
	require.NoError(t, storage.CreateTask(ctx, task))

	err := storage.CreateTask(ctx, task)
	assert.ErrorIs(t, err, queue.ErrTaskExists)

	err = storage.CreateTask(ctx, nil)
	assert.Error(t, err)
}

func TestMemoryStorage_ClaimOrdering(t *testing.T) {
	t.Parallel()

	t.Run("lower priority value first, then fifo", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		now := time.Now().Add(-time.Second)
		low := newTask("q", queue.PriorityLow, now)
		mediumA := newTask("q", queue.PriorityMedium, now)
		mediumB := newTask("q", queue.PriorityMedium, now)
		high := newTask("q", queue.PriorityHigh, now)
		for _, task := range []*queue.Task{low, mediumA, mediumB, high} {
			require.NoError(t, storage.CreateTask(ctx, task))
		}

		var order []uuid.UUID
		for range 4 {
			claimed, err := storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, queue.TaskStatusProcessing, claimed.Status)
			order = append(order, claimed.ID)
		}
		assert.Equal(t, []uuid.UUID{high.ID, mediumA.ID, mediumB.ID, low.ID}, order)

		_, err := storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("delayed tasks wait", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		require.NoError(t, storage.CreateTask(ctx, newTask("q", queue.PriorityHigh, time.Now().Add(time.Hour))))

		_, err := storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)

		stats, err := storage.Stats(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Delayed)
		assert.Equal(t, int64(0), stats.Waiting)
	})

	t.Run("queues are tried in order", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		other := newTask("other", queue.PriorityHigh, time.Now())
		preferred := newTask("preferred", queue.PriorityLow, time.Now())
		require.NoError(t, storage.CreateTask(ctx, other))
		require.NoError(t, storage.CreateTask(ctx, preferred))

		claimed, err := storage.ClaimTask(ctx, uuid.New(), []string{"preferred", "other"}, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, preferred.ID, claimed.ID)
	})

	t.Run("expired lock makes task claimable again", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		require.NoError(t, storage.CreateTask(ctx, task))

		_, err := storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		reclaimed, err := storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, task.ID, reclaimed.ID)
		assert.Equal(t, 0, reclaimed.AttemptsMade)
	})
}

func TestMemoryStorage_FailTask(t *testing.T) {
	t.Parallel()

	t.Run("reschedules with exponential backoff until exhausted", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		task.BackoffDelay = time.Millisecond
		require.NoError(t, storage.CreateTask(ctx, task))

		worker := uuid.New()
		_, err := storage.ClaimTask(ctx, worker, []string{"q"}, time.Minute)
		require.NoError(t, err)
		require.NoError(t, storage.FailTask(ctx, worker, task.ID, "first"))

		got, err := storage.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusPending, got.Status)
		assert.Equal(t, 1, got.AttemptsMade)
		require.NotNil(t, got.Error)
		assert.Equal(t, "first", *got.Error)

		for i := 2; i <= 3; i++ {
			require.Eventually(t, func() bool {
				_, err := storage.ClaimTask(ctx, worker, []string{"q"}, time.Minute)
				return err == nil
			}, time.Second, time.Millisecond)
			require.NoError(t, storage.FailTask(ctx, worker, task.ID, "again"))
		}

		got, err = storage.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusFailed, got.Status)
		assert.Equal(t, 3, got.AttemptsMade)
		assert.NotNil(t, got.ProcessedAt)

		stats, err := storage.Stats(ctx, "q")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Failed)
		require.Len(t, stats.RecentFailed, 1)
		assert.Equal(t, "again", stats.RecentFailed[0].Error)
	})

	t.Run("backoff delays the retry", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		require.NoError(t, storage.CreateTask(ctx, task))
		worker := uuid.New()
		_, err := storage.ClaimTask(ctx, worker, []string{"q"}, time.Minute)
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, storage.FailTask(ctx, worker, task.ID, "boom"))

		got, err := storage.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(2*time.Second), got.ScheduledAt, 100*time.Millisecond)

		_, err = storage.ClaimTask(ctx, uuid.New(), []string{"q"}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("discard skips remaining attempts", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		require.NoError(t, storage.CreateTask(ctx, task))
		worker := uuid.New()
		_, err := storage.ClaimTask(ctx, worker, []string{"q"}, time.Minute)
		require.NoError(t, err)

		require.NoError(t, storage.DiscardTask(ctx, worker, task.ID, "bad payload"))

		got, err := storage.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusFailed, got.Status)
		assert.Equal(t, 1, got.AttemptsMade)
	})

	t.Run("settling an unclaimed task fails", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		require.NoError(t, storage.CreateTask(ctx, task))

		worker := uuid.New()
		assert.ErrorIs(t, storage.FailTask(ctx, worker, task.ID, "x"), queue.ErrTaskNotProcessing)
		assert.ErrorIs(t, storage.CompleteTask(ctx, worker, task.ID), queue.ErrTaskNotProcessing)
		assert.ErrorIs(t, storage.CompleteTask(ctx, worker, uuid.New()), queue.ErrTaskNotFound)
	})

	t.Run("only the lock holder settles", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		ctx := context.Background()

		task := newTask("q", queue.PriorityMedium, time.Now())
		require.NoError(t, storage.CreateTask(ctx, task))

		stale, owner := uuid.New(), uuid.New()
		_, err := storage.ClaimTask(ctx, stale, []string{"q"}, time.Millisecond)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		reclaimed, err := storage.ClaimTask(ctx, owner, []string{"q"}, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, task.ID, reclaimed.ID)

		assert.ErrorIs(t, storage.FailTask(ctx, stale, task.ID, "late"), queue.ErrTaskLockLost)
		assert.ErrorIs(t, storage.DiscardTask(ctx, stale, task.ID, "late"), queue.ErrTaskLockLost)
		assert.ErrorIs(t, storage.CompleteTask(ctx, stale, task.ID), queue.ErrTaskLockLost)
		assert.ErrorIs(t, storage.ExtendLock(ctx, stale, task.ID, time.Minute), queue.ErrTaskLockLost)

		require.NoError(t, storage.ExtendLock(ctx, owner, task.ID, time.Minute))
		require.NoError(t, storage.CompleteTask(ctx, owner, task.ID))

		got, err := storage.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.TaskStatusCompleted, got.Status)
		assert.Equal(t, 0, got.AttemptsMade)
		assert.Nil(t, got.Error)
	})
}

func TestMemoryStorage_PurgeTasks(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	done := newTask("q", queue.PriorityMedium, time.Now())
	pending := newTask("q", queue.PriorityMedium, time.Now().Add(time.Hour))
	require.NoError(t, storage.CreateTask(ctx, done))
	require.NoError(t, storage.CreateTask(ctx, pending))

	worker := uuid.New()
	_, err := storage.ClaimTask(ctx, worker, []string{"q"}, time.Minute)
	require.NoError(t, err)
	require.NoError(t, storage.CompleteTask(ctx, worker, done.ID))

	n, err := storage.PurgeTasks(ctx, "q", queue.TaskStatusCompleted, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "recently completed task is retained")

	n, err = storage.PurgeTasks(ctx, "q", queue.TaskStatusCompleted, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = storage.GetTask(ctx, done.ID)
	assert.ErrorIs(t, err, queue.ErrTaskNotFound)

	_, err = storage.GetTask(ctx, pending.ID)
	assert.NoError(t, err)
}
