package push

import (
	"context"
	"fmt"
	"net/http"
)

// New builds the provider described by cfg. With useMocks it returns a
// MockProvider and never reads credentials.
func New(ctx context.Context, cfg Config, useMocks bool) (Provider, error) {
	if useMocks {
		return NewMockProvider(
			WithMockLatency(cfg.MockMinLatency, cfg.MockMaxLatency),
			WithMockFailureRate(cfg.MockFailureRate),
		), nil
	}

	fcm, err := NewFCMProviderFromFile(ctx, cfg.FCMCredentialsFile,
		WithFCMEndpoint(cfg.FCMEndpoint),
		WithFCMTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("push: fcm provider: %w", err)
	}

	expo := NewExpoProvider(
		WithExpoEndpoint(cfg.ExpoEndpoint),
		WithExpoAccessToken(cfg.ExpoAccessToken),
		WithExpoHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	return Router{Default: fcm, Expo: expo}, nil
}
