package dispatch

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithPublisher sets where created and reset notifications are announced.
func WithPublisher(p broadcast.Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithUnconditional toggles enqueueing regardless of recipient targets.
func WithUnconditional(on bool) Option {
	return func(d *Dispatcher) {
		d.unconditional = on
	}
}

// WithProviderNames sets the provider names recorded on new notifications.
func WithProviderNames(push, email string) Option {
	return func(d *Dispatcher) {
		d.pushProvider = push
		d.emailProvider = email
	}
}

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.unconditional = cfg.Unconditional
		if cfg.PushProvider != "" {
			d.pushProvider = cfg.PushProvider
		}
		if cfg.EmailProvider != "" {
			d.emailProvider = cfg.EmailProvider
		}
	}
}

// WithIDGenerator overrides notification id generation.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}
