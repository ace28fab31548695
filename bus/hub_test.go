package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	m.Run()
}

func mustEvent(t *testing.T, eventType string, payload any) model.Event {
	t.Helper()
	event, err := model.NewEvent(eventType, payload)
	require.NoError(t, err)
	return event
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(model.ChannelParticipants, 8)
	defer sub.Close()

	types := []string{
		model.EventParticipantCreated,
		model.EventParticipantUpdated,
		model.EventParticipantDeleted,
	}
	for _, eventType := range types {
		hub.Publish(model.ChannelParticipants, mustEvent(t, eventType, nil))
	}

	for _, want := range types {
		select {
		case got := <-sub.C:
			assert.Equal(t, want, got.Type)
		case <-time.After(time.Second):
			t.Fatalf("did not receive %s", want)
		}
	}
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe(model.ChannelParticipants, 1)
	defer first.Close()
	second := hub.Subscribe(model.ChannelParticipants, 1)
	defer second.Close()

	hub.Publish(model.ChannelParticipants, mustEvent(t, model.EventParticipantCreated, nil))

	for _, sub := range []*Subscription{first, second} {
		select {
		case event := <-sub.C:
			assert.Equal(t, model.EventParticipantCreated, event.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestHubChannelsAreIsolated(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("other", 1)
	defer sub.Close()

	hub.Publish(model.ChannelParticipants, mustEvent(t, model.EventParticipantCreated, nil))

	select {
	case event := <-sub.C:
		t.Fatalf("unexpected event %s on unrelated channel", event.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe(model.ChannelParticipants, 1)
	defer slow.Close()
	healthy := hub.Subscribe(model.ChannelParticipants, 8)
	defer healthy.Close()

	// The slow subscriber's buffer fills after one event; later publishes
	// must still return promptly and still reach the healthy subscriber.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.Publish(model.ChannelParticipants, mustEvent(t, model.EventParticipantUpdated, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for received < 5 {
		select {
		case <-healthy.C:
			received++
		case <-time.After(time.Second):
			t.Fatalf("healthy subscriber got %d of 5 events", received)
		}
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub()
	event := mustEvent(t, model.EventParticipantUpdated, nil)

	// A publisher racing a subscriber teardown must never send into the
	// closed channel. This is the ws peer-disconnect path under load.
	for i := 0; i < 2000; i++ {
		sub := hub.Subscribe(model.ChannelParticipants, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				hub.Publish(model.ChannelParticipants, event)
			}
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
		wg.Wait()
	}
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(model.ChannelParticipants, 1)

	sub.Close()
	// Close is idempotent.
	sub.Close()

	// Publishing after close must not panic on the closed channel.
	hub.Publish(model.ChannelParticipants, mustEvent(t, model.EventParticipantDeleted, nil))

	_, open := <-sub.C
	assert.False(t, open)
}

func TestLocalBroadcasterBuildsEvent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(model.ChannelParticipants, 1)
	defer sub.Close()

	b := NewLocalBroadcaster(hub)
	before := time.Now().UTC()
	err := b.Publish(context.Background(), model.ChannelParticipants,
		model.EventParticipantCreated, map[string]string{"id": "p1"})
	require.NoError(t, err)

	select {
	case event := <-sub.C:
		assert.Equal(t, model.EventParticipantCreated, event.Type)
		assert.False(t, event.Timestamp.Before(before))

		var payload map[string]string
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		assert.Equal(t, "p1", payload["id"])
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestChannelTopicScheme(t *testing.T) {
	assert.Equal(t, "events:participants", channelTopic(model.ChannelParticipants))
}
