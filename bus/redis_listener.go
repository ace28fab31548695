// bus/redis_listener.go

package bus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

// RedisListener bridges Redis pub/sub into the in-process Hub so websocket
// peers on this node receive events published by any node.
type RedisListener struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisListener(client *redis.Client, hub *Hub) *RedisListener {
	return &RedisListener{client: client, hub: hub}
}

// Start subscribes to every event topic and pumps frames into the hub until
// ctx is cancelled.
func (l *RedisListener) Start(ctx context.Context) {
	pubsub := l.client.PSubscribe(ctx, channelTopic("*"))

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event model.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn("Dropping malformed event frame from pub/sub",
						zap.Error(err),
						zap.String("topic", msg.Channel))
					continue
				}
				channel := strings.TrimPrefix(msg.Channel, "events:")
				l.hub.Publish(channel, event)
			case <-ctx.Done():
				return
			}
		}
	}()
}
