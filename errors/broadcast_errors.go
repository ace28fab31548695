// errors/broadcast_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrBroadcastFailure marks a write whose record mutation committed but
	// whose change event never reached the broadcast transport. The data
	// change is NOT rolled back; callers decide whether to retry the
	// notification or just warn.
	ErrBroadcastFailure = errors.New("broadcast failure")

	// ErrChannelNotReady is returned by an event channel send attempted
	// while the connection is not open. The frame is dropped, not queued.
	ErrChannelNotReady = errors.New("channel not ready")
)

// BroadcastError carries the channel a publish failed on. It unwraps to
// ErrBroadcastFailure so callers can match it with errors.Is.
type BroadcastError struct {
	Channel string
	Err     error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast on channel %q failed after committed mutation: %v", e.Channel, e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return ErrBroadcastFailure
}
