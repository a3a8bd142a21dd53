package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events over Redis PUB/SUB so that every API
// instance can forward them to its own connected clients.
type RedisPublisher struct {
	client     redis.UniversalClient
	prefix     string
	bufferSize int
	logger     *slog.Logger
}

// RedisOption configures RedisPublisher.
type RedisOption func(*RedisPublisher)

// WithChannelPrefix namespaces the Redis channels.
func WithChannelPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) {
		p.prefix = prefix
	}
}

// WithRedisBufferSize sets the subscriber buffer size.
func WithRedisBufferSize(n int) RedisOption {
	return func(p *RedisPublisher) {
		p.bufferSize = max(n, 1)
	}
}

// WithRedisLogger sets the logger used for undecodable messages.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(p *RedisPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewRedisPublisher creates a publisher on the given client.
func NewRedisPublisher(client redis.UniversalClient, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		client:     client,
		prefix:     "notifykit:events:",
		bufferSize: 64,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, room, event string, payload any) error {
	ev, err := newEvent(room, event, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return ErrEncodeEvent{Event: event, Err: err}
	}
	if err := p.client.Publish(ctx, p.prefix+room, body).Err(); err != nil {
		return ErrStorageFailure{Operation: "publish", Err: err}
	}
	return nil
}

// Subscribe listens on room until ctx is cancelled or the subscriber is closed.
func (p *RedisPublisher) Subscribe(ctx context.Context, room string) Subscriber {
	pubsub := p.client.Subscribe(ctx, p.prefix+room)
	sub := newSubscriber(room, p.bufferSize)

	ctx, cancel := context.WithCancel(ctx)
	sub.onStop = func() {
		cancel()
		_ = pubsub.Close()
	}

	go func() {
		defer sub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.Warn("dropping undecodable event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()))
					continue
				}
				sub.send(ev)
			}
		}
	}()

	return sub
}
