package notifications

import (
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeTransactional Type = "transactional"
	TypeMarketing     Type = "marketing"
	TypeAlert         Type = "alert"
	TypeSystem        Type = "system"
)

// Types lists every accepted Type.
var Types = []Type{TypeTransactional, TypeMarketing, TypeAlert, TypeSystem}

// Priority is the caller-facing urgency of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every accepted Priority.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Rank maps the priority onto the job queue scale where lower runs first.
// Unknown values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 10
	default:
		return 5
	}
}

// Channel identifies a delivery medium.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "inApp"
)

// DeliveryChannels are the channels that go through a provider.
var DeliveryChannels = []Channel{ChannelPush, ChannelEmail}

// Status is the state of a single channel.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"

	// In-app channel only.
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// ChannelState tracks delivery on one channel.
type ChannelState struct {
	Status      Status     `json:"status" bson:"status"`
	Provider    string     `json:"provider,omitempty" bson:"provider,omitempty"`
	Attempts    int        `json:"attempts" bson:"attempts"`
	SentAt      *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
	MessageID   string     `json:"messageId,omitempty" bson:"messageId,omitempty"`

	// Push fan-out counters.
	DeviceCount  int `json:"deviceCount,omitempty" bson:"deviceCount,omitempty"`
	SuccessCount int `json:"successCount,omitempty" bson:"successCount,omitempty"`
	FailureCount int `json:"failureCount,omitempty" bson:"failureCount,omitempty"`
}

// Notification is a message addressed to one user across several channels.
type Notification struct {
	ID        string                   `json:"id" bson:"_id"`
	UserID    string                   `json:"userId" bson:"userId"`
	Title     string                   `json:"title" bson:"title"`
	Body      string                   `json:"body" bson:"body"`
	Type      Type                     `json:"type" bson:"type"`
	Priority  Priority                 `json:"priority" bson:"priority"`
	Channels  map[Channel]ChannelState `json:"channels" bson:"channels"`
	Metadata  map[string]any           `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time                `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt" bson:"updatedAt"`
}

// Default provider names recorded on a fresh notification.
const (
	DefaultPushProvider  = "fcm"
	DefaultEmailProvider = "postmark"
)

// InitialChannels returns the state every new notification starts with.
func InitialChannels(pushProvider, emailProvider string) map[Channel]ChannelState {
	if pushProvider == "" {
		pushProvider = DefaultPushProvider
	}
	if emailProvider == "" {
		emailProvider = DefaultEmailProvider
	}
	return map[Channel]ChannelState{
		ChannelPush:  {Status: StatusPending, Provider: pushProvider},
		ChannelEmail: {Status: StatusPending, Provider: emailProvider},
		ChannelInApp: {Status: StatusUnread},
	}
}

// Channel returns the state of ch and whether the notification declares it.
func (n *Notification) Channel(ch Channel) (ChannelState, bool) {
	s, ok := n.Channels[ch]
	return s, ok
}

// OverallStatus is the aggregate computed from the delivery channels.
func (n *Notification) OverallStatus() OverallStatus {
	return OverallStatusOf(n.Channels)
}

// User is the read-only view of a recipient.
type User struct {
	ID      string   `json:"id" bson:"_id"`
	Email   string   `json:"email,omitempty" bson:"email,omitempty"`
	Name    string   `json:"name,omitempty" bson:"name,omitempty"`
	Devices []Device `json:"devices,omitempty" bson:"devices,omitempty"`
}

// Device is a push registration.
type Device struct {
	DeviceID string `json:"deviceId" bson:"deviceId"`
	Token    string `json:"token" bson:"token"`
	Platform string `json:"platform,omitempty" bson:"platform,omitempty"`
}

// HasDevices reports whether the user can receive push.
func (u *User) HasDevices() bool {
	return u != nil && len(u.Devices) > 0
}

// HasEmail reports whether the user can receive email.
func (u *User) HasEmail() bool {
	return u != nil && u.Email != ""
}
