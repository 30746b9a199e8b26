package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is used when no channel is configured
const DefaultRedisChannel = "itinerary-trip-events"

// RedisPublisher publishes trip events on a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(opts *redis.Options, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	log.Printf("[BROADCAST] Redis publisher: addr=%s channel=%s", opts.Addr, channel)
	return &RedisPublisher{
		client:  redis.NewClient(opts),
		channel: channel,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev TripEvent) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
