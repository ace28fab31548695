// ws/server.go
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/trackmeet/api/bus"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

// Server exposes the duplex event socket UI clients connect to. Every peer
// gets a welcome frame on open, echo frames answered, an error frame for
// malformed input, and all participant domain events in publish order.
type Server struct {
	hub *bus.Hub
}

func NewServer(hub *bus.Hub) *Server {
	return &Server{hub: hub}
}

// Handler returns the http.Handler serving the socket.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.handleConn)
}

// peer serializes frame writes; the fan-out goroutine and the read loop both
// write to the same connection.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) send(event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.Message.Send(p.conn, string(data))
}

func (s *Server) handleConn(conn *websocket.Conn) {
	defer conn.Close()

	p := &peer{conn: conn}

	// Subscribe before the welcome frame so no event published after the
	// peer sees the welcome can be lost.
	sub := s.hub.Subscribe(model.ChannelParticipants, 16)
	defer sub.Close()

	welcome, err := model.NewEvent(model.EventWelcome, map[string]string{"channel": model.ChannelParticipants})
	if err == nil {
		err = p.send(welcome)
	}
	if err != nil {
		logger.Warn("Failed to greet event socket peer", zap.Error(err))
		return
	}

	go func() {
		for event := range sub.C {
			if err := p.send(event); err != nil {
				logger.Debug("Event socket peer write failed", zap.Error(err))
				conn.Close()
				return
			}
		}
	}()

	for {
		var frame string
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			return
		}

		var event model.Event
		if err := json.Unmarshal([]byte(frame), &event); err != nil {
			errEvent, buildErr := model.NewEvent(model.EventError, map[string]string{"reason": "malformed frame"})
			if buildErr == nil {
				p.send(errEvent)
			}
			continue
		}

		switch event.Type {
		case model.EventEcho:
			reply, err := model.NewEvent(model.EventEcho, event.Payload)
			if err == nil {
				p.send(reply)
			}
		default:
			// Inbound domain frames are not accepted from peers.
		}
	}
}
