package broadcast

import (
	"context"
	"errors"
)

// MultiPublisher publishes every event to all of its publishers.
type MultiPublisher []Publisher

// Publish implements Publisher. Every publisher is attempted; failures are joined.
func (m MultiPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, room, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }
