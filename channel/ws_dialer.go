// channel/ws_dialer.go
package channel

import (
	"context"

	"golang.org/x/net/websocket"
)

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	var frame string
	if err := websocket.Message.Receive(c.ws, &frame); err != nil {
		return nil, err
	}
	return []byte(frame), nil
}

func (c *wsConn) WriteFrame(data []byte) error {
	return websocket.Message.Send(c.ws, string(data))
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// NewWebSocketDialer returns a Dialer that connects to the event socket at
// url, exchanging JSON text frames.
func NewWebSocketDialer(url, origin string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		config, err := websocket.NewConfig(url, origin)
		if err != nil {
			return nil, err
		}
		ws, err := websocket.DialConfig(config)
		if err != nil {
			return nil, err
		}
		return &wsConn{ws: ws}, nil
	}
}
