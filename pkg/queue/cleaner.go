package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// StatsRepository reports queue depth per bucket
type StatsRepository interface {
	Stats(ctx context.Context, queue string) (Stats, error)
}

// CleanerRepository removes settled tasks
type CleanerRepository interface {
	// PurgeTasks deletes tasks of the given terminal status that settled
	// before the cutoff and returns how many were removed.
	PurgeTasks(ctx context.Context, queue string, status TaskStatus, before time.Time) (int64, error)
}

// Cleaner enforces retention on settled tasks: completed tasks are kept for
// a day and failed ones for a week unless configured otherwise.
type Cleaner struct {
	repo               CleanerRepository
	queues             []string
	interval           time.Duration
	completedRetention time.Duration
	failedRetention    time.Duration
	logger             *slog.Logger
}

// CleanerOption is a functional option for configuring a Cleaner
type CleanerOption func(*Cleaner)

// WithCleanerQueues sets the queues the cleaner sweeps
func WithCleanerQueues(queues ...string) CleanerOption {
	return func(c *Cleaner) {
		if len(queues) > 0 {
			c.queues = queues
		}
	}
}

// WithCleanInterval sets how often Run sweeps
func WithCleanInterval(d time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithRetention sets how long completed and failed tasks are kept
func WithRetention(completed, failed time.Duration) CleanerOption {
	return func(c *Cleaner) {
		if completed > 0 {
			c.completedRetention = completed
		}
		if failed > 0 {
			c.failedRetention = failed
		}
	}
}

// WithCleanerLogger sets the logger for the cleaner
func WithCleanerLogger(logger *slog.Logger) CleanerOption {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCleaner creates a new Cleaner
func NewCleaner(repo CleanerRepository, opts ...CleanerOption) (*Cleaner, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	c := &Cleaner{
		repo:               repo,
		queues:             []string{DefaultQueueName},
		interval:           time.Hour,
		completedRetention: DefaultCompletedRetention,
		failedRetention:    DefaultFailedRetention,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Clean runs a single sweep and returns the number of purged tasks.
func (c *Cleaner) Clean(ctx context.Context) (int64, error) {
	now := time.Now()
	var (
		total int64
		errs  []error
	)

	for _, q := range c.queues {
		for status, keep := range map[TaskStatus]time.Duration{
			TaskStatusCompleted: c.completedRetention,
			TaskStatusFailed:    c.failedRetention,
		} {
			n, err := c.repo.PurgeTasks(ctx, q, status, now.Add(-keep))
			if err != nil {
				errs = append(errs, fmt.Errorf("purge %s tasks in %q: %w", status, q, err))
				continue
			}
			total += n
		}
	}

	if total > 0 {
		c.logger.Info("purged settled tasks",
			slog.Any("queues", c.queues),
			slog.Int64("count", total))
	}

	return total, errors.Join(errs...)
}

// Run sweeps on every interval until ctx is done. Suitable for errgroup.
func (c *Cleaner) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := c.Clean(ctx); err != nil {
					c.logger.Error("queue cleanup failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}
