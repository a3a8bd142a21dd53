package dispatch

import "errors"

var (
	// ErrQueueUnavailable reports that a job could not be enqueued. The
	// notification is already stored when this is returned.
	ErrQueueUnavailable = errors.New("delivery queue unavailable")

	// ErrInvalidChannel is returned when a resend names a channel that is not
	// delivered through a provider.
	ErrInvalidChannel = errors.New("channel cannot be resent")
)
