package model

import (
	"encoding/json"
	"time"
)

// ChannelParticipants is the notification channel participant domain events
// are published on.
const ChannelParticipants = "participants"

// Reserved event types on the wire. Domain events follow the
// "<resource>.<verb>" convention, e.g. "participant.created".
const (
	EventWelcome = "welcome"
	EventEcho    = "echo"
	EventError   = "error"

	EventParticipantCreated = "participant.created"
	EventParticipantUpdated = "participant.updated"
	EventParticipantDeleted = "participant.deleted"
)

// Event is the frame exchanged on notification channels and the event
// socket. Events are built once at publish time and never mutated.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent marshals payload and stamps the frame. Payloads that cannot be
// marshalled are a programming error and surface to the publisher.
func NewEvent(eventType string, payload any) (Event, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		raw = data
	}
	return Event{
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}
