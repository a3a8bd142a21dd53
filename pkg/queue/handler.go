package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type (
	Handler interface {
		Name() string
		Handle(ctx context.Context, job Job) error
	}

	TaskHandlerFunc[T any] func(ctx context.Context, job Job, payload T) error
)

// NewTaskHandler binds a typed handler to the task name derived from T.
// Undecodable payloads fail permanently.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &typedTaskHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

// NewNamedTaskHandler is NewTaskHandler with an explicit task name.
func NewNamedTaskHandler[T any](name string, handler TaskHandlerFunc[T]) Handler {
	return &typedTaskHandler[T]{
		name:    name,
		handler: handler,
	}
}

type typedTaskHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *typedTaskHandler[T]) Name() string {
	return h.name
}

func (h *typedTaskHandler[T]) Handle(ctx context.Context, job Job) error {
	var t T
	if err := json.Unmarshal(job.Payload, &t); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", h.name, err))
	}
	return h.handler(ctx, job, t)
}

// qualifiedStructName is the default task name: the payload's package
// qualified type name without pointer markers.
func qualifiedStructName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}
