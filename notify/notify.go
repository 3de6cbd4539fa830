// Package notify is an in-process publish/subscribe hub for live events:
// recorded scans, unknown cards, moves, export progress and reader state.
package notify

import (
	"sync"
	"time"
)

const (
	AttendanceRecorded = "attendance.recorded"
	CardUnknown        = "card.unknown"
	CardEnrolled       = "card.enrolled"
	StudentsMoved      = "students.moved"
	ExportProgress     = "export.progress"
	ExportDone         = "export.done"
	ReaderState        = "reader.state"
)

// Event is what subscribers receive. Data is serialized as JSON by the
// websocket feed.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	sync.Mutex
	next int64
	subs map[int64]chan Event
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]chan Event, 8), now: time.Now}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (h *Hub) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 32
	}
	ch := make(chan Event, buf)

	h.Lock()
	h.next++
	id := h.next
	h.subs[id] = ch
	h.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.Lock()
			delete(h.subs, id)
			h.Unlock()
			close(ch)
		})
	}
}

// Publish is safe on a nil hub so components can run without one.
func (h *Hub) Publish(typ string, data any) {
	if h == nil {
		return
	}
	ev := Event{Type: typ, At: h.now(), Data: data}

	h.Lock()
	defer h.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.Lock()
	defer h.Unlock()
	return len(h.subs)
}
