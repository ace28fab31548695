// channel/channel.go
package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	meet_errors "github.com/trackmeet/api/errors"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/model"
)

// State of the connection lifecycle. Errors always collapse to StateClosed
// before reconnection logic runs; there is no separate errored state.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one live duplex connection carrying string-encoded JSON frames.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Dialer opens a new Conn. The channel calls it for the initial connect and
// for every reconnection attempt.
type Dialer func(ctx context.Context) (Conn, error)

type Options struct {
	BaseDelay   time.Duration // first reconnect delay, doubles per attempt
	MaxDelay    time.Duration // cap on the reconnect delay
	MaxAttempts int           // consecutive failures before giving up
	BufferSize  int           // inbound event ring capacity

	// OnEvent, when set, is invoked for every successfully parsed inbound
	// event after it has been buffered.
	OnEvent func(model.Event)
}

func (o *Options) withDefaults() {
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 10
	}
}

// Channel is a client-side event channel that owns its connection lifecycle:
// it reconnects with capped exponential backoff, keeps the last BufferSize
// events in a ring buffer, and drops (never queues) sends attempted while
// the connection is not open.
type Channel struct {
	dialer Dialer
	opts   Options

	mu       sync.Mutex
	state    State
	attempt  int
	conn     Conn
	timer    *time.Timer
	buffer   *Ring
	torndown bool
}

func New(dialer Dialer, opts Options) *Channel {
	opts.withDefaults()
	return &Channel{
		dialer: dialer,
		opts:   opts,
		state:  StateConnecting,
		buffer: NewRing(opts.BufferSize),
	}
}

// Start begins the initial connection attempt in the background.
func (c *Channel) Start(ctx context.Context) {
	go c.dial(ctx)
}

func (c *Channel) dial(ctx context.Context) {
	c.mu.Lock()
	if c.torndown {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dialer(ctx)
	if err != nil {
		logger.Warn("Channel dial failed", zap.Error(err))
		c.disconnected(ctx)
		return
	}

	c.mu.Lock()
	if c.torndown {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempt = 0
	c.mu.Unlock()

	logger.Info("Channel open")
	go c.readLoop(ctx, conn)
}

func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			logger.Warn("Channel connection lost", zap.Error(err))
			c.disconnected(ctx)
			return
		}

		var event model.Event
		if err := json.Unmarshal(data, &event); err != nil {
			// Message-level error: drop the frame, keep the connection.
			logger.Warn("Dropping malformed inbound frame", zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.buffer.Push(event)
		onEvent := c.opts.OnEvent
		c.mu.Unlock()

		if onEvent != nil {
			onEvent(event)
		}
	}
}

// disconnected moves the channel to closed and schedules a single
// reconnection timer, superseding any pending one. After MaxAttempts
// consecutive failures the channel stays closed for good.
func (c *Channel) disconnected(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.torndown {
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed

	if c.attempt >= c.opts.MaxAttempts {
		logger.Error("Channel giving up after max reconnect attempts",
			zap.Int("attempts", c.attempt))
		return
	}

	delay := backoffDelay(c.attempt, c.opts.BaseDelay, c.opts.MaxDelay)
	c.attempt++

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, func() { c.dial(ctx) })

	logger.Info("Channel reconnect scheduled",
		zap.Duration("delay", delay),
		zap.Int("attempt", c.attempt))
}

// Send writes one event frame. It is permitted only while the channel is
// open; otherwise the frame is dropped and ErrChannelNotReady returned.
func (c *Channel) Send(eventType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen && conn != nil
	c.mu.Unlock()

	if !open {
		return meet_errors.ErrChannelNotReady
	}

	event, err := model.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteFrame(data)
}

// Close tears the channel down: any pending reconnect timer is cancelled and
// the state is terminally closed. In-flight sends are not guaranteed delivered.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.torndown {
		return nil
	}
	c.torndown = true
	c.state = StateClosed

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// State reports the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recent returns the buffered events, oldest first.
func (c *Channel) Recent() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Items()
}

// backoffDelay doubles base per prior attempt, capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
