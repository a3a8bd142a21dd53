package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("job", slog.String("id", "1"), slog.Int("attempt", 2))
	require.Equal(t, "job", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "attempt", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	type channel string

	tests := []struct {
		attr slog.Attr
		key  string
		want any
	}{
		{logger.NotificationID("n1"), "notification_id", "n1"},
		{logger.UserID("u1"), "user_id", "u1"},
		{logger.Channel(channel("push")), "channel", "push"},
		{logger.Status(channel("sent")), "status", "sent"},
		{logger.JobID("j1"), "job_id", "j1"},
		{logger.Queue("email-notifications"), "queue", "email-notifications"},
		{logger.Attempt(2), "attempt", int64(2)},
		{logger.Provider("fcm"), "provider", "fcm"},
		{logger.MessageID("m1"), "message_id", "m1"},
		{logger.RequestID("r1"), "request_id", "r1"},
		{logger.Duration(time.Second), "duration", time.Second},
		{logger.Event("notification.created"), "event", "notification.created"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
		assert.Equal(t, tt.want, tt.attr.Value.Any(), tt.key)
	}
}

func TestEmptyIDsAreDropped(t *testing.T) {
	assert.True(t, logger.MessageID("").Equal(slog.Attr{}))
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
	assert.True(t, logger.JobID(nil).Equal(slog.Attr{}))
}
