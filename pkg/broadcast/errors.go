package broadcast

import (
	"errors"
	"fmt"
)

// ErrPublisherClosed is returned when publishing on a closed publisher.
var ErrPublisherClosed = errors.New("broadcast: publisher is closed")

// ErrEncodeEvent is returned when a payload cannot be serialised.
type ErrEncodeEvent struct {
	Event string
	Err   error
}

func (e ErrEncodeEvent) Error() string {
	return fmt.Sprintf("broadcast: encode %s payload: %v", e.Event, e.Err)
}

func (e ErrEncodeEvent) Unwrap() error {
	return e.Err
}

// ErrStorageFailure wraps transport errors.
type ErrStorageFailure struct {
	Operation string
	Err       error
}

func (e ErrStorageFailure) Error() string {
	return fmt.Sprintf("broadcast: %s failed: %v", e.Operation, e.Err)
}

func (e ErrStorageFailure) Unwrap() error {
	return e.Err
}
