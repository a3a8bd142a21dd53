package email

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// MockSender pretends to send. Latency and failure rate are configurable.
type MockSender struct {
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
}

// MockOption configures a MockSender.
type MockOption func(*MockSender)

// WithMockLatency makes every send take between min and max.
func WithMockLatency(minLatency, maxLatency time.Duration) MockOption {
	return func(m *MockSender) {
		m.minLatency = max(minLatency, 0)
		m.maxLatency = max(maxLatency, m.minLatency)
	}
}

// WithMockFailureRate sets the share of sends that fail, from 0 to 1.
func WithMockFailureRate(rate float64) MockOption {
	return func(m *MockSender) {
		m.failureRate = min(max(rate, 0), 1)
	}
}

// NewMockSender creates a mock sender that succeeds immediately unless configured otherwise.
func NewMockSender(opts ...MockOption) *MockSender {
	m := &MockSender{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockSender) Name() string { return "mock-email" }

func (m *MockSender) SendEmail(ctx context.Context, params SendEmailParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	d := m.minLatency
	if m.maxLatency > m.minLatency {
		d += rand.N(m.maxLatency - m.minLatency)
	}
	if d > 0 {
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
	return fmt.Sprintf("mock-email-%d-%06d", time.Now().UnixMilli(), rand.IntN(1_000_000)), nil
}
