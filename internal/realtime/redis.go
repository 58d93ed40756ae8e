package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes channel messages to Redis so every API
// instance can relay them to its own subscribers.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := Encode(channel, event, payload)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, data).Err()
}

// Relay pattern-subscribes to every channel under prefix and hands each
// message to the hub until ctx is done.
func Relay(ctx context.Context, client *redis.Client, hub *Hub, prefix string, log *slog.Logger) error {
	sub := client.PSubscribe(ctx, prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s*: %w", prefix, err)
	}
	log.Info("realtime relay subscribed", "pattern", prefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Deliver(msg.Channel, []byte(msg.Payload))
		}
	}
}
