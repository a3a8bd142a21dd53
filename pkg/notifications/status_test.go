package notifications_test

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func channels(push, email notifications.Status) map[notifications.Channel]notifications.ChannelState {
	return map[notifications.Channel]notifications.ChannelState{
		notifications.ChannelPush:  {Status: push},
		notifications.ChannelEmail: {Status: email},
		notifications.ChannelInApp: {Status: notifications.StatusUnread},
	}
}

func TestOverallStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		push  notifications.Status
		email notifications.Status
		want  notifications.OverallStatus
	}{
		{"delivered and failed is partial", notifications.StatusDelivered, notifications.StatusFailed, notifications.OverallPartial},
		{"failed and delivered is partial", notifications.StatusFailed, notifications.StatusDelivered, notifications.OverallPartial},
		{"delivered only", notifications.StatusDelivered, notifications.StatusPending, notifications.OverallDelivered},
		{"delivered and skipped", notifications.StatusDelivered, notifications.StatusSkipped, notifications.OverallDelivered},
		{"both delivered", notifications.StatusDelivered, notifications.StatusDelivered, notifications.OverallDelivered},
		{"failed only", notifications.StatusPending, notifications.StatusFailed, notifications.OverallFailed},
		{"skipped and failed", notifications.StatusSkipped, notifications.StatusFailed, notifications.OverallFailed},
		{"all pending", notifications.StatusPending, notifications.StatusPending, notifications.OverallPending},
		{"in flight", notifications.StatusSent, notifications.StatusSent, notifications.OverallPending},
		{"skipped only", notifications.StatusSkipped, notifications.StatusPending, notifications.OverallPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, notifications.OverallStatusOf(channels(tt.push, tt.email)))
		})
	}
}

func TestOverallStatusOf_IsPure(t *testing.T) {
	t.Parallel()

	in := channels(notifications.StatusDelivered, notifications.StatusFailed)
	snapshot := maps.Clone(in)

	first := notifications.OverallStatusOf(in)
	second := notifications.OverallStatusOf(in)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, in)
}

func TestOverallStatusOf_IgnoresInApp(t *testing.T) {
	t.Parallel()

	in := channels(notifications.StatusPending, notifications.StatusPending)
	in[notifications.ChannelInApp] = notifications.ChannelState{Status: notifications.StatusRead}
	assert.Equal(t, notifications.OverallPending, notifications.OverallStatusOf(in))
	assert.Equal(t, notifications.OverallPending, notifications.OverallStatusOf(nil))
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := [][2]notifications.Status{
		{notifications.StatusPending, notifications.StatusSent},
		{notifications.StatusSent, notifications.StatusDelivered},
		{notifications.StatusSent, notifications.StatusPending},
		{notifications.StatusSent, notifications.StatusFailed},
		{notifications.StatusPending, notifications.StatusSkipped},
		{notifications.StatusPending, notifications.StatusFailed},
		{notifications.StatusUnread, notifications.StatusRead},
	}
	for _, tr := range allowed {
		assert.True(t, notifications.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	refused := [][2]notifications.Status{
		{notifications.StatusPending, notifications.StatusDelivered},
		{notifications.StatusDelivered, notifications.StatusSent},
		{notifications.StatusDelivered, notifications.StatusFailed},
		{notifications.StatusFailed, notifications.StatusDelivered},
		{notifications.StatusSkipped, notifications.StatusSent},
		{notifications.StatusRead, notifications.StatusUnread},
		{notifications.StatusDelivered, notifications.StatusPending},
		{notifications.StatusFailed, notifications.StatusPending},
		{notifications.StatusSkipped, notifications.StatusPending},
	}
	for _, tr := range refused {
		assert.False(t, notifications.CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestCanApply_OnlyResetReopensFinishedChannels(t *testing.T) {
	t.Parallel()

	retry := notifications.ChannelUpdate{Status: notifications.StatusPending, Error: notifications.Ptr("boom")}
	reset := notifications.ResetUpdate()

	for _, from := range []notifications.Status{
		notifications.StatusDelivered,
		notifications.StatusFailed,
		notifications.StatusSkipped,
	} {
		assert.False(t, notifications.CanApply(from, retry), "retry over %s", from)
		assert.True(t, notifications.CanApply(from, reset), "reset over %s", from)
	}
	for _, from := range []notifications.Status{notifications.StatusPending, notifications.StatusSent} {
		assert.True(t, notifications.CanApply(from, retry), "retry over %s", from)
		assert.True(t, notifications.CanApply(from, reset), "reset over %s", from)
	}

	assert.False(t, notifications.CanApply(notifications.StatusRead, reset), "inApp states are not resettable")
}

func TestPriority_Rank(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, notifications.PriorityHigh.Rank())
	assert.Equal(t, 5, notifications.PriorityMedium.Rank())
	assert.Equal(t, 10, notifications.PriorityLow.Rank())
	assert.Equal(t, 5, notifications.Priority("").Rank())
}
