package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under the key "error". A nil err yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification id under "notification_id".
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// UserID records the recipient under "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Channel records a delivery channel under "channel".
func Channel[T ~string](ch T) slog.Attr {
	return slog.String("channel", string(ch))
}

// Status records a channel status under "status".
func Status[T ~string](s T) slog.Attr {
	return slog.String("status", string(s))
}

// JobID records a queue job id under "job_id".
func JobID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("job_id", id)
}

// Queue records a queue name under "queue".
func Queue(name string) slog.Attr {
	return slog.String("queue", name)
}

// Attempt records the 1-based delivery attempt under "attempt".
func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Provider records the backend that handled a delivery.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// MessageID records a provider message id under "message_id".
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}

// RequestID records the HTTP request id under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records a published event name under "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
