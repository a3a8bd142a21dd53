package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

type handlerTestPayload struct {
	ID string `json:"id"`
}

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	t.Run("name derives from payload type", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(context.Context, queue.Job, handlerTestPayload) error { return nil })
		assert.Equal(t, "queue_test.handlerTestPayload", h.Name())
	})

	t.Run("decodes payload and passes job", func(t *testing.T) {
		t.Parallel()

		var got handlerTestPayload
		var gotJob queue.Job
		h := queue.NewNamedTaskHandler("named", func(_ context.Context, job queue.Job, p handlerTestPayload) error {
			got, gotJob = p, job
			return nil
		})
		assert.Equal(t, "named", h.Name())

		job := queue.Job{Name: "named", Payload: []byte(`{"id":"n1"}`), AttemptsMade: 1, MaxAttempts: 3}
		require.NoError(t, h.Handle(context.Background(), job))
		assert.Equal(t, "n1", got.ID)
		assert.Equal(t, 2, gotJob.Attempt())
		assert.False(t, gotJob.IsFinalAttempt())
	})

	t.Run("undecodable payload fails permanently", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(context.Context, queue.Job, handlerTestPayload) error { return nil })
		err := h.Handle(context.Background(), queue.Job{Payload: []byte(`{`)})
		require.Error(t, err)
		assert.True(t, queue.IsPermanent(err))
	})

	t.Run("handler error is retryable", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		h := queue.NewTaskHandler(func(context.Context, queue.Job, handlerTestPayload) error { return boom })
		err := h.Handle(context.Background(), queue.Job{Payload: []byte(`{}`)})
		assert.ErrorIs(t, err, boom)
		assert.False(t, queue.IsPermanent(err))
	})
}

func TestJob_IsFinalAttempt(t *testing.T) {
	t.Parallel()

	assert.False(t, queue.Job{AttemptsMade: 0, MaxAttempts: 3}.IsFinalAttempt())
	assert.False(t, queue.Job{AttemptsMade: 1, MaxAttempts: 3}.IsFinalAttempt())
	assert.True(t, queue.Job{AttemptsMade: 2, MaxAttempts: 3}.IsFinalAttempt())
	assert.True(t, queue.Job{AttemptsMade: 0, MaxAttempts: 1}.IsFinalAttempt())
}
