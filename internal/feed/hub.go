package feed

import "sync"

// Event types published by the controller.
const (
	EventUpdated = "updated"
	EventPending = "pending"
)

// Event tells subscribers that the feed of a category changed.
type Event struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	// Count is the number of polls in the list the event refers to: the
	// visible list for EventUpdated, the staged list for EventPending.
	Count   int    `json:"count"`
	Version uint64 `json:"version"`
}

// Hub fans events out to subscribers. Slow subscribers lose events rather
// than block the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber that has room for it.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
