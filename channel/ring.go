// channel/ring.go
package channel

import "github.com/trackmeet/api/model"

// Ring is a fixed-capacity buffer of the most recently received events.
// Pushing at capacity evicts the oldest entry; insertion order is preserved.
type Ring struct {
	buf   []model.Event
	start int
	count int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.Event, capacity)}
}

func (r *Ring) Push(event model.Event) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = event
		r.count++
		return
	}
	r.buf[r.start] = event
	r.start = (r.start + 1) % len(r.buf)
}

func (r *Ring) Len() int {
	return r.count
}

// Items returns the buffered events oldest first.
func (r *Ring) Items() []model.Event {
	out := make([]model.Event, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
