// Package events fans monitor events out to subscribers such as websocket
// clients and the desktop notifier.
package events

import (
	"sync"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub delivers published events to every subscriber.
// A subscriber whose queue is full misses the event instead of blocking the publisher.
type Hub struct {
	// buffer is the channel capacity given to new subscribers.
	buffer int

	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
	closed      bool
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{
		buffer:      buffer,
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.subscribers[ch] = struct{}{}

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			h.remove(ch)
		})
	}
}

// Publish delivers event to all subscribers without blocking.
func (h *Hub) Publish(event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// remove drops ch if it is still registered.
func (h *Hub) remove(ch chan domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; !ok {
		return
	}

	delete(h.subscribers, ch)
	close(ch)
}
