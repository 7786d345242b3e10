package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event is one message broadcast to subscribers
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it
const subscriberBuffer = 16

// Hub fans out events to subscribers
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	dropped int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Subscribe registers a new subscriber channel
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

// Publish encodes evt and sends it to every subscriber without blocking
func (h *Hub) Publish(evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	msg, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many deliveries were dropped for slow subscribers
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
