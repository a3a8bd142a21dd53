package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification is not found.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotificationExists is returned on duplicate ids.
	ErrNotificationExists = errors.New("notification already exists")

	// ErrUnknownChannel is returned when a notification does not declare the channel.
	ErrUnknownChannel = errors.New("unknown notification channel")

	// ErrInvalidTransition is returned when a channel status update would move backwards.
	ErrInvalidTransition = errors.New("invalid channel status transition")

	// ErrInvalidNotification is matched by ValidationErrors.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrUserNotFound is returned by a UserDirectory for unknown ids.
	ErrUserNotFound = errors.New("user not found")

	// ErrStorageFailure wraps driver errors.
	ErrStorageFailure = errors.New("notification storage failure")
)
