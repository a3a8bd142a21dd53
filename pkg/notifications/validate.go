package notifications

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 4000
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when a notification is rejected before
// anything is persisted or enqueued.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (ve ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(ve, func(e ValidationError) bool { return e.Field == field })
}

// Is lets errors.Is match ErrInvalidNotification.
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrInvalidNotification
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	ok := errors.As(err, &ve)
	return ve, ok
}

type rule struct {
	check func() bool
	err   ValidationError
}

func required(field, value string) rule {
	return rule{
		check: func() bool { return strings.TrimSpace(value) != "" },
		err:   ValidationError{Field: field, Message: "is required"},
	}
}

func maxLength(field, value string, n int) rule {
	return rule{
		check: func() bool { return len([]rune(value)) <= n },
		err:   ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", n)},
	}
}

func oneOf[T comparable](field string, value T, allowed []T) rule {
	return rule{
		check: func() bool { return slices.Contains(allowed, value) },
		err:   ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %v", allowed)},
	}
}

func apply(rules ...rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if !r.check() {
			errs = append(errs, r.err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the caller supplied fields. An empty priority is accepted
// and means medium.
func (n *Notification) Validate() error {
	rules := []rule{
		required("userId", n.UserID),
		required("title", n.Title),
		maxLength("title", n.Title, maxTitleLength),
		required("body", n.Body),
		maxLength("body", n.Body, maxBodyLength),
		oneOf("type", n.Type, Types),
	}
	if n.Priority != "" {
		rules = append(rules, oneOf("priority", n.Priority, Priorities))
	}
	return apply(rules...)
}
