// Package queue provides a repository-agnostic task queue with priorities,
// delayed execution, automatic retry with exponential backoff and retention
// of settled tasks.
//
// The package is organised around three main components:
//
//   - Enqueuer: adds tasks to a queue and returns once they are durable
//   - Worker: claims ready tasks and dispatches them to a Handler
//   - Cleaner: purges completed and failed tasks past their retention
//
// Components interact only through small repository interfaces
// (EnqueuerRepository, WorkerRepository, StatsRepository, CleanerRepository).
// MemoryStorage implements them for tests and local development and
// RedisStorage implements them on sorted sets for production.
//
// # Ordering
//
// Within a queue the lowest Priority value is served first (PriorityHigh = 1,
// PriorityMedium = 5, PriorityLow = 10). Ties are broken by the time the task
// became ready, then by enqueue order.
//
// # Retries
//
// A task carries MaxAttempts (default 3) and a backoff base (default 2s).
// After a failed attempt storage reschedules it base*2^(n-1) later, capped at
// BackoffMax, until the attempts are used up and the task lands in the failed
// bucket. Handlers see the attempt in progress through Job.Attempt and can
// return Permanent(err) to fail immediately. A task whose worker disappears
// is handed out again once its lock expires, so delivery is at least once.
// Only the worker holding a task's lock may settle it; a worker that lost its
// lock gets ErrTaskLockLost and its result is dropped.
//
// # Usage
//
//	storage := queue.NewMemoryStorage()
//	enq, _ := queue.NewEnqueuer(storage, queue.WithDefaultQueue("push-notifications"))
//	_, _ = enq.Enqueue(ctx, PushJob{NotificationID: id}, queue.WithPriority(queue.PriorityHigh))
//
//	w, _ := queue.NewWorker(storage, queue.WithQueues("push-notifications"))
//	_ = w.RegisterHandler(queue.NewTaskHandler(func(ctx context.Context, job queue.Job, p PushJob) error {
//		return deliver(ctx, p, job.Attempt())
//	}))
//	g.Go(w.Run(ctx))
//
// # Error Handling
//
// Package-level sentinel errors (e.g. ErrInvalidPriority, ErrNoHandlers,
// ErrTaskCreate) can be checked with errors.Is.
package queue
