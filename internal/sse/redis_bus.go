package sse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_inbox/internal/cache"
)

// RedisPublisher publishes events on a Redis channel so that every API
// instance running a RedisRelay pushes them to its own subscribers.
type RedisPublisher struct {
	redis   *cache.RedisClient
	channel string
}

// NewRedisPublisher creates a publisher on the given channel.
func NewRedisPublisher(redis *cache.RedisClient, channel string) *RedisPublisher {
	return &RedisPublisher{redis: redis, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.redis.Publish(ctx, p.channel, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// RedisRelay forwards messages from the Redis channel into the local hub.
type RedisRelay struct {
	redis   *cache.RedisClient
	channel string
	hub     *Hub
}

// NewRedisRelay creates a relay feeding hub from channel.
func NewRedisRelay(redis *cache.RedisClient, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{redis: redis, channel: channel, hub: hub}
}

// Start blocks until ctx is cancelled.
func (r *RedisRelay) Start(ctx context.Context) {
	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		log.Error().Err(err).Str("channel", r.channel).Msg("Event relay subscribe failed")
		return
	}
	log.Info().Str("channel", r.channel).Msg("Starting event relay")

	msgs := sub.Channel()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Str("channel", r.channel).Msg("Event relay channel closed")
				return
			}
			r.hub.BroadcastRaw([]byte(msg.Payload))
		case <-ctx.Done():
			log.Info().Msg("Event relay stopped")
			return
		}
	}
}
