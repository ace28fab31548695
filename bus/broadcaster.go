// bus/broadcaster.go

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trackmeet/api/model"
)

// Broadcaster delivers a typed domain event to all current subscribers of a
// named channel. Delivery is at-most-once with no queue and no replay:
// subscribers not connected at publish time never see the event. Unlike the
// cache layer, publish failures are loud — the caller of the originating
// write decides what to do with them.
type Broadcaster interface {
	Publish(ctx context.Context, channel, eventType string, payload any) error
}

// channelTopic maps a logical channel to its Redis pub/sub topic.
func channelTopic(channel string) string {
	return "events:" + channel
}

// RedisBroadcaster fans events out over Redis pub/sub so every running API
// node sees them.
type RedisBroadcaster struct {
	client *redis.Client
}

var _ Broadcaster = (*RedisBroadcaster)(nil)

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel, eventType string, payload any) error {
	event, err := model.NewEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to build event %s: %w", eventType, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	if err := b.client.Publish(ctx, channelTopic(channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", eventType, channel, err)
	}
	return nil
}

// LocalBroadcaster publishes straight into an in-process Hub. Used by the
// memory storage driver and by tests.
type LocalBroadcaster struct {
	hub *Hub
}

var _ Broadcaster = (*LocalBroadcaster)(nil)

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) Publish(_ context.Context, channel, eventType string, payload any) error {
	event, err := model.NewEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to build event %s: %w", eventType, err)
	}
	b.hub.Publish(channel, event)
	return nil
}
