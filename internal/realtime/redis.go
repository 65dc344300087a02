package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the Redis pub/sub channel used when REALTIME_CHANNEL is unset.
const DefaultChannel = "csgames_changes"

// envelope tags events with the publishing instance so it can skip its own echoes.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge publishes to the local hub and relays events between server instances
// over Redis pub/sub.
type RedisBridge struct {
	hub     *Hub
	rdb     *redis.Client
	channel string
	origin  string
	logger  *logrus.Logger
}

// NewRedisBridge wraps hub. rdb must already be connected.
func NewRedisBridge(hub *Hub, rdb *redis.Client, channel string, logger *logrus.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		hub:     hub,
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish delivers locally, then forwards to the other instances.
func (b *RedisBridge) Publish(ctx context.Context, ev Event) {
	b.hub.Publish(ctx, ev)
	data, err := json.Marshal(envelope{Origin: b.origin, Event: ev})
	if err != nil {
		b.logger.Warnf("realtime: failed to marshal %s event: %v", ev.Table, err)
		return
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Warnf("realtime: failed to publish to '%s': %v", b.channel, err)
	}
}

// Run relays remote events into the local hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to '%s': %w", b.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warnf("realtime: invalid relay payload: %v", err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.hub.Publish(ctx, env.Event)
		}
	}
}
