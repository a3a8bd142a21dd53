package delivery

import "github.com/dmitrymomot/notifykit/pkg/notifications"

// Event names published to the recipient's room.
const (
	EventCreated        = "notification.created"
	EventChannelUpdated = "notification.channel_updated"
)

// ChannelUpdatedEvent is the payload of EventChannelUpdated.
type ChannelUpdatedEvent struct {
	NotificationID string                      `json:"notificationId"`
	Channel        notifications.Channel       `json:"channel"`
	State          notifications.ChannelState  `json:"state"`
	OverallStatus  notifications.OverallStatus `json:"overallStatus"`
}

// CreatedEvent is the payload of EventCreated.
type CreatedEvent struct {
	Notification  notifications.Notification  `json:"notification"`
	OverallStatus notifications.OverallStatus `json:"overallStatus"`
}
