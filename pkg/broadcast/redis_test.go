package broadcast_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
)

func TestRedisPublisher(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	pub := broadcast.NewRedisPublisher(client, broadcast.WithChannelPrefix("test:"+uuid.NewString()+":"))
	ctx := context.Background()

	sub := pub.Subscribe(ctx, broadcast.UserRoom("u1"))
	defer sub.Close()

	require.Eventually(t, func() bool {
		require.NoError(t, pub.Publish(ctx, broadcast.UserRoom("u1"), "notification.created", payload{ID: "n1"}))
		select {
		case ev := <-sub.Events():
			var p payload
			require.NoError(t, ev.Decode(&p))
			assert.Equal(t, "n1", p.ID)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
