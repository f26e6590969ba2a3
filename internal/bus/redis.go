package bus

import (
	"context"

	"github.com/redis/go-redis/v9"

	"dustforce-relay/internal/shared/logger"
)

// defaultChannel is the Redis Pub/Sub channel the Ingester publishes on
// and the Broker subscribes to.
const defaultChannel = "dustkid:events"

// RedisBus implements PublishSubscriber over a Redis Pub/Sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *logger.Logger
}

// NewRedisBus creates a Redis-backed bus on the default channel.
func NewRedisBus(client *redis.Client, l *logger.Logger) *RedisBus {
	return &RedisBus{client: client, channel: defaultChannel, logger: l}
}

// Publish publishes a raw record to the bus channel.
func (b *RedisBus) Publish(ctx context.Context, record []byte) error {
	return b.client.Publish(ctx, b.channel, record).Err()
}

// Subscribe opens a Redis Pub/Sub subscription and forwards payloads to a
// channel that closes when ctx is done or the subscription errors out.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan []byte, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-pubsub.Channel():
				if msg == nil {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
