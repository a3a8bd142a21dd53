package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/svc/delivery"
	"github.com/dmitrymomot/notifykit/svc/dispatch"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) (uuid.UUID, error) {
	args := m.Called(payload)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type env struct {
	store *notifications.MemoryStorage
	users *notifications.MemoryUserDirectory
	queue *queue.MemoryStorage
	pub   *broadcast.MemoryPublisher
	disp  *dispatch.Dispatcher
}

func newEnv(t *testing.T, opts ...dispatch.Option) *env {
	t.Helper()

	qs := queue.NewMemoryStorage()
	pub := broadcast.NewMemoryPublisher(32)
	t.Cleanup(func() {
		_ = qs.Close()
		_ = pub.Close()
	})

	enq, err := queue.NewEnqueuer(qs)
	require.NoError(t, err)

	e := &env{
		store: notifications.NewMemoryStorage(),
		users: notifications.NewMemoryUserDirectory(
			notifications.User{
				ID:      "full",
				Email:   "full@example.com",
				Name:    "Full",
				Devices: []notifications.Device{{DeviceID: "d1", Token: "tok-1", Platform: "ios"}},
			},
			notifications.User{ID: "mail-only", Email: "mail@example.com"},
			notifications.User{ID: "nothing"},
		),
		queue: qs,
		pub:   pub,
	}
	e.disp = dispatch.New(e.store, e.users, enq, qs, append([]dispatch.Option{dispatch.WithPublisher(pub)}, opts...)...)
	return e
}

func input(userID string) dispatch.Input {
	return dispatch.Input{
		UserID:   userID,
		Title:    "Payment received",
		Body:     "We received your payment",
		Type:     notifications.TypeTransactional,
		Priority: notifications.PriorityHigh,
	}
}

func (e *env) task(t *testing.T, id uuid.UUID) (*queue.Task, delivery.Job) {
	t.Helper()
	task, err := e.queue.GetTask(context.Background(), id)
	require.NoError(t, err)
	var job delivery.Job
	require.NoError(t, json.Unmarshal(task.Payload, &job))
	return task, job
}

func channels(jobs []dispatch.QueuedJob) []notifications.Channel {
	out := make([]notifications.Channel, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Channel)
	}
	return out
}

func TestCreateAndDispatch_AllChannels(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := requestid.WithContext(context.Background(), "req-42")
	sub := e.pub.Subscribe(ctx, broadcast.UserRoom("full"))
	defer sub.Close()

	res, err := e.disp.CreateAndDispatch(ctx, input("full"))
	require.NoError(t, err)
	require.NoError(t, res.QueueErr)
	require.NotEmpty(t, res.NotificationID)
	assert.ElementsMatch(t, []notifications.Channel{notifications.ChannelPush, notifications.ChannelEmail}, channels(res.Jobs))

	n, err := e.store.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, n.Channels[notifications.ChannelPush].Status)
	assert.Equal(t, notifications.StatusPending, n.Channels[notifications.ChannelEmail].Status)
	assert.Equal(t, notifications.StatusUnread, n.Channels[notifications.ChannelInApp].Status)

	for _, j := range res.Jobs {
		task, job := e.task(t, j.JobID)
		assert.Equal(t, queue.Priority(1), task.Priority)
		assert.Equal(t, delivery.TaskFor(j.Channel), task.TaskName)
		wantQueue, _ := delivery.QueueFor(j.Channel)
		assert.Equal(t, wantQueue, task.Queue)
		assert.Equal(t, res.NotificationID, job.NotificationID)
		assert.Equal(t, "req-42", job.RequestID)
		if j.Channel == notifications.ChannelEmail {
			assert.Equal(t, "full@example.com", job.UserEmail)
			assert.Equal(t, "Full", job.UserName)
		}
	}

	select {
	case ev := <-sub.Events():
		assert.Equal(t, delivery.EventCreated, ev.Name)
	case <-time.After(time.Second):
		t.Fatal("created event not published")
	}
}

func TestCreateAndDispatch_DefaultPriority(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	in := input("mail-only")
	in.Priority = ""

	res, err := e.disp.CreateAndDispatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)

	task, _ := e.task(t, res.Jobs[0].JobID)
	assert.Equal(t, queue.Priority(5), task.Priority)

	n, err := e.store.Get(context.Background(), res.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, notifications.PriorityMedium, n.Priority)
}

func TestCreateAndDispatch_Validation(t *testing.T) {
	t.Parallel()

	enq := &mockEnqueuer{}
	e := newEnv(t)
	d := dispatch.New(e.store, e.users, enq, nil)

	in := input("full")
	in.Type = "newsletter"
	in.Title = ""

	_, err := d.CreateAndDispatch(context.Background(), in)
	require.ErrorIs(t, err, notifications.ErrInvalidNotification)

	ve, ok := notifications.AsValidationErrors(err)
	require.True(t, ok)
	assert.True(t, ve.Has("type"))
	assert.True(t, ve.Has("title"))
	enq.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestCreateAndDispatch_InapplicableChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		user          string
		unconditional bool
		want          []notifications.Channel
	}{
		{"email only", "mail-only", false, []notifications.Channel{notifications.ChannelEmail}},
		{"no targets", "nothing", false, nil},
		{"unknown user", "ghost", false, nil},
		{"unknown user unconditional", "ghost", true, []notifications.Channel{notifications.ChannelPush, notifications.ChannelEmail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, dispatch.WithUnconditional(tt.unconditional))
			res, err := e.disp.CreateAndDispatch(context.Background(), input(tt.user))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, channels(res.Jobs))

			n, err := e.store.Get(context.Background(), res.NotificationID)
			require.NoError(t, err)
			for _, ch := range notifications.DeliveryChannels {
				assert.Equal(t, notifications.StatusPending, n.Channels[ch].Status)
			}
		})
	}
}

func TestCreateAndDispatch_QueueDown(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	enq := &mockEnqueuer{}
	enq.On("Enqueue", mock.Anything).Return(uuid.Nil, errors.New("connection refused"))
	d := dispatch.New(e.store, e.users, enq, nil)

	res, err := d.CreateAndDispatch(context.Background(), input("full"))
	require.NoError(t, err)
	require.ErrorIs(t, res.QueueErr, dispatch.ErrQueueUnavailable)
	assert.Empty(t, res.Jobs)

	n, err := e.store.Get(context.Background(), res.NotificationID)
	require.NoError(t, err, "notification must survive an enqueue failure")
	assert.Equal(t, "Payment received", n.Title)
	enq.AssertNumberOfCalls(t, "Enqueue", 2)
}

func TestResend(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	res, err := e.disp.CreateAndDispatch(ctx, input("full"))
	require.NoError(t, err)
	id := res.NotificationID

	// push failed for good, email delivered
	for _, u := range []struct {
		ch notifications.Channel
		s  notifications.Status
	}{
		{notifications.ChannelPush, notifications.StatusSent},
		{notifications.ChannelPush, notifications.StatusFailed},
		{notifications.ChannelEmail, notifications.StatusSent},
		{notifications.ChannelEmail, notifications.StatusDelivered},
	} {
		upd := notifications.ChannelUpdate{Status: u.s, Error: notifications.Ptr("boom"), SentAt: notifications.Ptr(time.Now())}
		require.NoError(t, e.store.UpdateChannel(ctx, id, u.ch, upd))
	}

	out, err := e.disp.Resend(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, out.JobsQueued)
	assert.Equal(t, []notifications.Channel{notifications.ChannelPush}, channels(out.Jobs))

	n, err := e.store.Get(ctx, id)
	require.NoError(t, err)
	push := n.Channels[notifications.ChannelPush]
	assert.Equal(t, notifications.StatusPending, push.Status)
	assert.Empty(t, push.Error)
	assert.Nil(t, push.SentAt)
	assert.Equal(t, notifications.StatusDelivered, n.Channels[notifications.ChannelEmail].Status)

	// Naming a channel resends it even when delivered.
	out, err = e.disp.Resend(ctx, id, notifications.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 1, out.JobsQueued)
	n, err = e.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, notifications.StatusPending, n.Channels[notifications.ChannelEmail].Status)
}

func TestResend_Errors(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.disp.Resend(ctx, "missing")
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

	_, err = e.disp.Resend(ctx, "missing", notifications.ChannelInApp)
	assert.ErrorIs(t, err, dispatch.ErrInvalidChannel)
}

func TestResend_SkipsChannelsWithoutTarget(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	res, err := e.disp.CreateAndDispatch(ctx, input("mail-only"))
	require.NoError(t, err)

	out, err := e.disp.Resend(ctx, res.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, []notifications.Channel{notifications.ChannelEmail}, channels(out.Jobs))
}

func TestMarkReadAndGet(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newEnv(t, dispatch.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	res, err := e.disp.CreateAndDispatch(ctx, input("full"))
	require.NoError(t, err)

	require.NoError(t, e.disp.MarkRead(ctx, res.NotificationID))
	require.NoError(t, e.disp.MarkRead(ctx, res.NotificationID))

	view, err := e.disp.Get(ctx, res.NotificationID)
	require.NoError(t, err)
	inApp := view.Channels[notifications.ChannelInApp]
	assert.Equal(t, notifications.StatusRead, inApp.Status)
	require.NotNil(t, inApp.ReadAt)
	assert.True(t, inApp.ReadAt.Equal(now))
	assert.Equal(t, notifications.OverallPending, view.OverallStatus)

	assert.ErrorIs(t, e.disp.MarkRead(ctx, "missing"), notifications.ErrNotificationNotFound)
}

func TestQueueStats(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	_, err := e.disp.CreateAndDispatch(ctx, input("full"))
	require.NoError(t, err)
	_, err = e.disp.CreateAndDispatch(ctx, input("mail-only"))
	require.NoError(t, err)

	stats, err := e.disp.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[notifications.ChannelPush].Waiting)
	assert.Equal(t, int64(2), stats[notifications.ChannelEmail].Waiting)
	assert.Equal(t, delivery.EmailQueue, stats[notifications.ChannelEmail].Queue)

	d := dispatch.New(e.store, e.users, &mockEnqueuer{}, nil)
	_, err = d.QueueStats(ctx)
	assert.ErrorIs(t, err, dispatch.ErrQueueUnavailable)
}
