package delivery

import (
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// Queue names, one per delivery channel.
const (
	PushQueue  = "push-notifications"
	EmailQueue = "email-notifications"
)

// Task names the workers register under.
const (
	PushTask  = "delivery.push"
	EmailTask = "delivery.email"
)

// Job is the payload of a single channel delivery. Attempt bookkeeping lives
// on the queue task, not here.
type Job struct {
	Channel        notifications.Channel  `json:"channel"`
	NotificationID string                 `json:"notificationId"`
	UserID         string                 `json:"userId"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Type           notifications.Type     `json:"type"`
	Priority       notifications.Priority `json:"priority"`

	// Email only; snapshot taken at dispatch time when the address was known.
	UserEmail string `json:"userEmail,omitempty"`
	UserName  string `json:"userName,omitempty"`

	RequestID string `json:"requestId,omitempty"`
}

// NewJob builds the job for one channel of n.
func NewJob(n *notifications.Notification, ch notifications.Channel) Job {
	return Job{
		Channel:        ch,
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Body:           n.Body,
		Type:           n.Type,
		Priority:       n.Priority,
	}
}

// QueueFor returns the queue serving ch.
func QueueFor(ch notifications.Channel) (string, bool) {
	switch ch {
	case notifications.ChannelPush:
		return PushQueue, true
	case notifications.ChannelEmail:
		return EmailQueue, true
	default:
		return "", false
	}
}

// TaskFor returns the task name handled for ch.
func TaskFor(ch notifications.Channel) string {
	switch ch {
	case notifications.ChannelPush:
		return PushTask
	case notifications.ChannelEmail:
		return EmailTask
	default:
		return ""
	}
}

// QueuePriority maps a notification priority onto the queue scale.
func QueuePriority(p notifications.Priority) queue.Priority {
	return queue.Priority(p.Rank())
}
