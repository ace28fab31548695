// bus/hub.go

package bus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

// Subscription is one consumer's view of a channel. Events arrive on C in
// publish order; a consumer that stops draining loses events rather than
// blocking the hub.
type Subscription struct {
	Channel string
	C       chan model.Event

	hub  *Hub
	once sync.Once
}

// Close detaches the subscription from the hub and closes C. Safe to call
// more than once and concurrently with Publish.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.closeSubscription(s)
	})
}

// Hub manages in-process event subscriptions and publications, fanning each
// published event out to every subscription currently attached to the
// channel.
type Hub struct {
	subscribers map[string][]*Subscription
	mu          sync.RWMutex
	errorChan   chan error
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]*Subscription),
		errorChan:   make(chan error, 100), // Buffer size can be adjusted
	}
}

// Subscribe attaches a new subscriber to a channel. buffer bounds how many
// undelivered events the subscriber may fall behind by.
func (h *Hub) Subscribe(channel string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{
		Channel: channel,
		C:       make(chan model.Event, buffer),
		hub:     h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[channel] = append(h.subscribers[channel], sub)
	return sub
}

// Publish sends an event to all current subscribers of the channel. Events
// published on the same channel reach a given subscriber in publish order;
// there is no ordering guarantee across channels.
func (h *Hub) Publish(channel string, event model.Event) {
	// The read lock is held across the sends: closeSubscription closes C
	// under the write lock, so no send here can hit a closed channel.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[channel] {
		select {
		case sub.C <- event:
		default:
			select {
			case h.errorChan <- fmt.Errorf("subscriber on %s too slow, dropped %s", channel, event.Type):
			default:
				// If error channel is full, log the drop directly
				logger.Warn("Error channel full, dropping event for slow subscriber",
					zap.String("channel", channel),
					zap.String("eventType", event.Type))
			}
		}
	}
}

// Start begins draining subscriber errors in the background.
func (h *Hub) Start(ctx context.Context) {
	go h.processErrors(ctx)
}

func (h *Hub) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-h.errorChan:
			logger.Warn("Event delivery degraded", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// closeSubscription removes the subscription and closes its channel in one
// critical section, so a publisher can never hold a slice that still contains
// a subscription whose channel is closed.
func (h *Hub) closeSubscription(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.Channel]
	for i, s := range subs {
		if s == sub {
			h.subscribers[sub.Channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(sub.C)
}
