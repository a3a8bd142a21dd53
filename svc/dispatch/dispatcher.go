package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/svc/delivery"
)

// Enqueuer is the write side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) (uuid.UUID, error)
}

// Input is a request to notify one user.
type Input struct {
	UserID   string                 `json:"userId"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Type     notifications.Type     `json:"type"`
	Priority notifications.Priority `json:"priority,omitempty"`
	Metadata map[string]any         `json:"metadata,omitempty"`
}

// QueuedJob identifies one enqueued delivery.
type QueuedJob struct {
	Channel notifications.Channel `json:"channel"`
	JobID   uuid.UUID             `json:"jobId"`
}

// DispatchResult lists the jobs that made it into the queue. QueueErr is set
// when some did not; the notification is stored either way.
type DispatchResult struct {
	NotificationID string      `json:"notificationId"`
	Jobs           []QueuedJob `json:"jobs"`
	QueueErr       error       `json:"-"`
}

// ResendResult is the outcome of Resend.
type ResendResult struct {
	JobsQueued int         `json:"jobsQueued"`
	Jobs       []QueuedJob `json:"jobs"`
	QueueErr   error       `json:"-"`
}

// View is a notification with its derived overall status.
type View struct {
	notifications.Notification
	OverallStatus notifications.OverallStatus `json:"overallStatus"`
}

// Dispatcher creates notifications and hands their channels to the workers.
type Dispatcher struct {
	store    notifications.Storage
	users    notifications.UserDirectory
	enqueuer Enqueuer
	stats    queue.StatsRepository

	publisher     broadcast.Publisher
	logger        *slog.Logger
	unconditional bool
	pushProvider  string
	emailProvider string
	newID         func() string
	now           func() time.Time
}

// New creates a Dispatcher. stats may be nil, in which case QueueStats
// reports ErrQueueUnavailable.
func New(store notifications.Storage, users notifications.UserDirectory, enqueuer Enqueuer, stats queue.StatsRepository, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:         store,
		users:         users,
		enqueuer:      enqueuer,
		stats:         stats,
		publisher:     broadcast.NoopPublisher{},
		logger:        slog.Default(),
		pushProvider:  notifications.DefaultPushProvider,
		emailProvider: notifications.DefaultEmailProvider,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateAndDispatch validates and stores a notification, then enqueues its
// deliveries. Once the notification is stored the id is always returned;
// enqueue failures only show up in DispatchResult.QueueErr.
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, in Input) (DispatchResult, error) {
	now := d.now().UTC()
	n := notifications.Notification{
		ID:        d.newID(),
		UserID:    in.UserID,
		Title:     in.Title,
		Body:      in.Body,
		Type:      in.Type,
		Priority:  in.Priority,
		Channels:  notifications.InitialChannels(d.pushProvider, d.emailProvider),
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := n.Validate(); err != nil {
		return DispatchResult{}, err
	}
	if n.Priority == "" {
		n.Priority = notifications.PriorityMedium
	}

	if err := d.store.Insert(ctx, n); err != nil {
		return DispatchResult{}, fmt.Errorf("store notification: %w", err)
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification created",
		logger.NotificationID(n.ID),
		logger.UserID(n.UserID),
		slog.String("type", string(n.Type)),
		slog.String("priority", string(n.Priority)),
	)
	d.publish(ctx, n.UserID, delivery.EventCreated, delivery.CreatedEvent{
		Notification:  n,
		OverallStatus: n.OverallStatus(),
	})

	return d.Dispatch(ctx, &n), nil
}

// Dispatch enqueues one job per applicable delivery channel. Channels
// without a target keep their pending state and are not enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, n *notifications.Notification) DispatchResult {
	res := DispatchResult{NotificationID: n.ID}
	user := d.lookup(ctx, n.UserID)

	for _, ch := range notifications.DeliveryChannels {
		if _, ok := n.Channel(ch); !ok {
			continue
		}
		job, ok := d.job(n, ch, user)
		if !ok {
			d.logger.LogAttrs(ctx, slog.LevelInfo, "channel not applicable, not enqueued",
				logger.NotificationID(n.ID),
				logger.Channel(ch),
			)
			continue
		}

		id, err := d.enqueue(ctx, job)
		if err != nil {
			res.QueueErr = errors.Join(res.QueueErr, err)
			continue
		}
		res.Jobs = append(res.Jobs, QueuedJob{Channel: ch, JobID: id})
	}
	return res
}

// Resend resets the given channels to pending and enqueues them again. With
// no channels it targets every delivery channel that is not delivered.
// Channels without a target are left as they are. Concurrent resends are not
// deduplicated.
func (d *Dispatcher) Resend(ctx context.Context, id string, channels ...notifications.Channel) (ResendResult, error) {
	for _, ch := range channels {
		if !slices.Contains(notifications.DeliveryChannels, ch) {
			return ResendResult{}, fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
		}
	}

	n, err := d.store.Get(ctx, id)
	if err != nil {
		return ResendResult{}, err
	}

	if len(channels) == 0 {
		for _, ch := range notifications.DeliveryChannels {
			if s, ok := n.Channel(ch); ok && s.Status != notifications.StatusDelivered {
				channels = append(channels, ch)
			}
		}
	}

	var res ResendResult
	user := d.lookup(ctx, n.UserID)
	for _, ch := range channels {
		if _, ok := n.Channel(ch); !ok {
			continue
		}
		job, ok := d.job(n, ch, user)
		if !ok {
			continue
		}

		if err := d.store.UpdateChannel(ctx, n.ID, ch, notifications.ResetUpdate()); err != nil {
			return res, fmt.Errorf("reset %s channel: %w", ch, err)
		}
		d.publishChannel(ctx, n.ID, ch)

		jobID, err := d.enqueue(ctx, job)
		if err != nil {
			res.QueueErr = errors.Join(res.QueueErr, err)
			continue
		}
		res.Jobs = append(res.Jobs, QueuedJob{Channel: ch, JobID: jobID})
	}
	res.JobsQueued = len(res.Jobs)

	d.logger.LogAttrs(ctx, slog.LevelInfo, "notification resent",
		logger.NotificationID(n.ID),
		slog.Int("jobs_queued", res.JobsQueued),
		logger.Error(res.QueueErr),
	)
	return res, nil
}

// Get returns a notification with its overall status.
func (d *Dispatcher) Get(ctx context.Context, id string) (*View, error) {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{Notification: *n, OverallStatus: n.OverallStatus()}, nil
}

// MarkRead marks the in-app channel as read. Marking twice is allowed and
// moves readAt forward.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) error {
	if err := d.store.UpdateChannel(ctx, id, notifications.ChannelInApp, notifications.ReadUpdate(d.now().UTC())); err != nil {
		return err
	}
	d.publishChannel(ctx, id, notifications.ChannelInApp)
	return nil
}

// QueueStats reports per-channel queue counters.
func (d *Dispatcher) QueueStats(ctx context.Context) (map[notifications.Channel]queue.Stats, error) {
	if d.stats == nil {
		return nil, ErrQueueUnavailable
	}

	out := make(map[notifications.Channel]queue.Stats, len(notifications.DeliveryChannels))
	for _, ch := range notifications.DeliveryChannels {
		name, _ := delivery.QueueFor(ch)
		s, err := d.stats.Stats(ctx, name)
		if err != nil {
			return nil, errors.Join(ErrQueueUnavailable, err)
		}
		out[ch] = s
	}
	return out, nil
}

// lookup resolves the recipient. A nil user means no channel has a known
// target.
func (d *Dispatcher) lookup(ctx context.Context, userID string) *notifications.User {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, notifications.ErrUserNotFound) {
			level = slog.LevelInfo
		}
		d.logger.LogAttrs(ctx, level, "recipient lookup failed",
			logger.UserID(userID),
			logger.Error(err),
		)
		return nil
	}
	return user
}

// job builds the delivery job for ch, or reports that ch has no target.
func (d *Dispatcher) job(n *notifications.Notification, ch notifications.Channel, user *notifications.User) (delivery.Job, bool) {
	job := delivery.NewJob(n, ch)

	switch ch {
	case notifications.ChannelPush:
		return job, d.unconditional || user.HasDevices()
	case notifications.ChannelEmail:
		if user.HasEmail() {
			job.UserEmail = user.Email
			job.UserName = user.Name
			return job, true
		}
		return job, d.unconditional
	default:
		return job, false
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, job delivery.Job) (uuid.UUID, error) {
	queueName, _ := delivery.QueueFor(job.Channel)
	job.RequestID = requestid.FromContext(ctx)

	id, err := d.enqueuer.Enqueue(ctx, job,
		queue.WithQueue(queueName),
		queue.WithTaskName(delivery.TaskFor(job.Channel)),
		queue.WithPriority(delivery.QueuePriority(job.Priority)),
	)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "enqueue delivery failed",
			logger.NotificationID(job.NotificationID),
			logger.Channel(job.Channel),
			logger.Queue(queueName),
			logger.Error(err),
		)
		return uuid.Nil, fmt.Errorf("%w: %s: %w", ErrQueueUnavailable, job.Channel, err)
	}

	d.logger.LogAttrs(ctx, slog.LevelDebug, "delivery enqueued",
		logger.NotificationID(job.NotificationID),
		logger.Channel(job.Channel),
		logger.JobID(id),
	)
	return id, nil
}

func (d *Dispatcher) publishChannel(ctx context.Context, id string, ch notifications.Channel) {
	n, err := d.store.Get(ctx, id)
	if err != nil {
		return
	}
	d.publish(ctx, n.UserID, delivery.EventChannelUpdated, delivery.ChannelUpdatedEvent{
		NotificationID: n.ID,
		Channel:        ch,
		State:          n.Channels[ch],
		OverallStatus:  n.OverallStatus(),
	})
}

func (d *Dispatcher) publish(ctx context.Context, userID, event string, payload any) {
	if err := d.publisher.Publish(ctx, broadcast.UserRoom(userID), event, payload); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "publish event failed",
			logger.UserID(userID),
			logger.Event(event),
			logger.Error(err),
		)
	}
}
