package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// EmailWorker delivers email jobs.
type EmailWorker struct {
	recorder
	users  notifications.UserDirectory
	sender email.Sender
}

// NewEmailWorker creates an email worker.
func NewEmailWorker(store notifications.Storage, users notifications.UserDirectory, sender email.Sender, opts ...Option) *EmailWorker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &EmailWorker{
		recorder: recorder{store: store, options: o},
		users:    users,
		sender:   sender,
	}
}

// Handler registers the worker with a queue.Worker.
func (w *EmailWorker) Handler() queue.Handler {
	return queue.NewNamedTaskHandler(EmailTask, w.Handle)
}

// Handle processes one email job. A missing address is a retryable failure,
// unlike push where a recipient without devices is skipped.
func (w *EmailWorker) Handle(ctx context.Context, job queue.Job, p Job) error {
	if p.Channel != notifications.ChannelEmail {
		return queue.Permanent(fmt.Errorf("%w: %s", ErrUnexpectedChannel, p.Channel))
	}
	ctx = withRequestID(ctx, p)

	to, name, err := w.recipient(ctx, p)
	if err != nil {
		return w.dropMissing(w.fail(ctx, job, p, err))
	}

	params, err := email.Compose(ctx, email.Content{
		To:       to,
		UserName: name,
		Title:    p.Title,
		Body:     p.Body,
		Type:     string(p.Type),
	})
	if err != nil {
		return w.dropMissing(w.fail(ctx, job, p, err))
	}

	settled, err := w.begin(ctx, job, p, w.sender.Name())
	if err != nil {
		return w.dropMissing(err)
	}
	if settled {
		return nil
	}

	messageID, err := w.sender.SendEmail(ctx, params)
	if err != nil {
		return w.dropMissing(w.fail(ctx, job, p, errors.Join(ErrSendFailed, err)))
	}

	now := w.now()
	err = w.update(ctx, p, notifications.ChannelUpdate{
		Status:      notifications.StatusDelivered,
		DeliveredAt: &now,
		MessageID:   notifications.Ptr(messageID),
	})
	if err != nil && !errors.Is(err, notifications.ErrInvalidTransition) {
		return w.dropMissing(err)
	}

	w.logger.LogAttrs(ctx, slog.LevelInfo, "email delivered",
		logger.NotificationID(p.NotificationID),
		logger.JobID(job.ID),
		logger.Provider(w.sender.Name()),
		logger.MessageID(messageID),
	)
	return nil
}

// recipient prefers the address snapshot on the job and falls back to the
// directory.
func (w *EmailWorker) recipient(ctx context.Context, p Job) (addr, name string, err error) {
	if p.UserEmail != "" {
		return p.UserEmail, p.UserName, nil
	}

	user, err := w.users.GetUser(ctx, p.UserID)
	if errors.Is(err, notifications.ErrUserNotFound) {
		return "", "", ErrNoEmail
	}
	if err != nil {
		return "", "", err
	}
	if !user.HasEmail() {
		return "", "", ErrNoEmail
	}
	return user.Email, user.Name, nil
}
