package delivery

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
)

// Option configures a worker.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	publisher   broadcast.Publisher
	fanOutLimit int
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		publisher:   broadcast.NoopPublisher{},
		fanOutLimit: 16,
		now:         time.Now,
	}
}

// WithLogger sets the worker logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisher sets where channel updates are announced.
func WithPublisher(p broadcast.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithFanOutLimit bounds concurrent device sends within one push job.
func WithFanOutLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.fanOutLimit = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
