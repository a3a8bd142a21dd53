package push

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// MockProvider simulates a push backend with configurable latency and failure rate.
type MockProvider struct {
	name        string
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
}

// MockOption configures a MockProvider.
type MockOption func(*MockProvider)

// WithMockName overrides the reported provider name.
func WithMockName(name string) MockOption {
	return func(m *MockProvider) {
		if name != "" {
			m.name = name
		}
	}
}

// WithMockLatency makes every send take between min and max.
func WithMockLatency(minLatency, maxLatency time.Duration) MockOption {
	return func(m *MockProvider) {
		if minLatency < 0 {
			minLatency = 0
		}
		if maxLatency < minLatency {
			maxLatency = minLatency
		}
		m.minLatency, m.maxLatency = minLatency, maxLatency
	}
}

// WithMockFailureRate sets the share of sends that fail, from 0 to 1.
func WithMockFailureRate(rate float64) MockOption {
	return func(m *MockProvider) {
		m.failureRate = min(max(rate, 0), 1)
	}
}

// NewMockProvider creates a provider that never leaves the process.
// With no options it succeeds immediately.
func NewMockProvider(opts ...MockOption) *MockProvider {
	m := &MockProvider{name: "mock-push"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", ErrMissingToken
	}

	if d := m.latency(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	if m.failureRate > 0 && rand.Float64() < m.failureRate {
		return "", ErrMockFailure
	}
	return fmt.Sprintf("mock-push-%d-%06d", time.Now().UnixMilli(), rand.IntN(1_000_000)), nil
}

func (m *MockProvider) latency() time.Duration {
	if m.maxLatency <= m.minLatency {
		return m.minLatency
	}
	return m.minLatency + rand.N(m.maxLatency-m.minLatency)
}
