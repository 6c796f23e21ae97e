package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus carries broadcast groups over Redis pub/sub channels so multiple
// server instances share one fan-out domain.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, addr string) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisBus{client: client}, nil
}

// Publish sends the message to the group's Redis channel.
func (b *RedisBus) Publish(ctx context.Context, group string, msg LogMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal log message: %w", err)
	}
	if err := b.client.Publish(ctx, group, payload).Err(); err != nil {
		customLog.Warnf("Bus: redis publish to group %s failed: %v", group, err)
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe joins the group's Redis channel and decodes incoming payloads.
func (b *RedisBus) Subscribe(ctx context.Context, group string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, group)

	// Confirm the subscription before handing it out, so a Publish on
	// another connection immediately after Subscribe is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := make(chan LogMessage, subscriberBuffer)
	go func() {
		defer close(ch)
		for raw := range pubsub.Channel() {
			var msg LogMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				customLog.Warnf("Bus: discarding malformed payload on group %s: %v", group, err)
				continue
			}
			select {
			case ch <- msg:
			default:
				customLog.Warnf("Bus: dropping message for slow subscriber in group %s", group)
			}
		}
	}()

	return &Subscription{
		C: ch,
		close: func() {
			pubsub.Close()
		},
	}, nil
}

// Close releases the underlying Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
