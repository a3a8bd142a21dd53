package push

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when the provider rejects the device token
	// as unknown, expired or malformed.
	ErrInvalidToken = errors.New("push: device token is invalid or expired")

	// ErrMissingToken is returned when a message carries no token.
	ErrMissingToken = errors.New("push: device token is required")

	// ErrMissingCredentials is returned when a real provider is built without credentials.
	ErrMissingCredentials = errors.New("push: provider credentials are not configured")

	// ErrMockFailure is returned by MockProvider for simulated failures.
	ErrMockFailure = errors.New("push: simulated delivery failure")
)

// ProviderError carries a non-success answer from a push backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
}
