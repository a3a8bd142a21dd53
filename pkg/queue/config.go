package queue

import "time"

// Config holds the configuration for the task queue
type Config struct {
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"500ms"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxConcurrentTasks int           `env:"QUEUE_MAX_CONCURRENT_TASKS" envDefault:"10"`

	MaxAttempts  int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	BackoffDelay time.Duration `env:"QUEUE_BACKOFF_DELAY" envDefault:"2s"`
	BackoffMax   time.Duration `env:"QUEUE_BACKOFF_MAX" envDefault:"1m"`

	CompletedRetention time.Duration `env:"QUEUE_COMPLETED_RETENTION" envDefault:"24h"`
	FailedRetention    time.Duration `env:"QUEUE_FAILED_RETENTION" envDefault:"168h"`
	CleanInterval      time.Duration `env:"QUEUE_CLEAN_INTERVAL" envDefault:"1h"`

	RedisKeyPrefix string `env:"QUEUE_REDIS_PREFIX" envDefault:"notifykit:queue"`
}
