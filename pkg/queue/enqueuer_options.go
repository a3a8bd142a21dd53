package queue

import "time"

// EnqueuerOption is a functional option for configuring an Enqueuer
type EnqueuerOption func(*enqueuerOptions)

type enqueuerOptions struct {
	defaultQueue    string
	defaultPriority Priority
	maxAttempts     int
	backoffDelay    time.Duration
	backoffMax      time.Duration
}

// WithDefaultQueue sets the default queue name
func WithDefaultQueue(queue string) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if queue != "" {
			o.defaultQueue = queue
		}
	}
}

// WithDefaultPriority sets the default priority
func WithDefaultPriority(priority Priority) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if priority.Valid() {
			o.defaultPriority = priority
		}
	}
}

// WithDefaultRetryPolicy sets the attempts and backoff applied to every task
// unless overridden per call.
func WithDefaultRetryPolicy(maxAttempts int, base, maxDelay time.Duration) EnqueuerOption {
	return func(o *enqueuerOptions) {
		if maxAttempts >= 1 && maxAttempts <= maxAttemptsLimit {
			o.maxAttempts = maxAttempts
		}
		if base > 0 {
			o.backoffDelay = base
		}
		if maxDelay > 0 {
			o.backoffMax = maxDelay
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	queue        string
	priority     Priority
	maxAttempts  int
	backoffDelay time.Duration
	backoffMax   time.Duration
	delay        time.Duration
	taskName     string
}

const maxAttemptsLimit = 25

// WithQueue sets the queue for the task
func WithQueue(queue string) EnqueueOption {
	return func(o *enqueueOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithPriority sets the priority for the task
func WithPriority(priority Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = priority
	}
}

// WithMaxAttempts sets the total number of attempts (1-25), first run included
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n >= 1 && n <= maxAttemptsLimit {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the exponential backoff base and its upper bound
func WithBackoff(base, maxDelay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if base > 0 {
			o.backoffDelay = base
		}
		if maxDelay > 0 {
			o.backoffMax = maxDelay
		}
	}
}

// WithDelay sets a delay before the task can be processed
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

// WithTaskName sets a custom task name
func WithTaskName(name string) EnqueueOption {
	return func(o *enqueueOptions) {
		if name != "" {
			o.taskName = name
		}
	}
}
