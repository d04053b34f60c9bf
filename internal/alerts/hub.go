package alerts

import (
	"context"
	"sync"
)

const defaultBufferSize = 32

// Hub is the in-process registry of live subscribers, keyed by owner.
//
// Delivery is best-effort and at-most-once: a subscriber whose buffer is full
// misses the payload. The hub never blocks a publisher on a slow reader.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[<-chan []byte]chan []byte
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Hub{subs: make(map[string]map[<-chan []byte]chan []byte), buffer: buffer}
}

// Register adds a private delivery channel for ownerID.
func (h *Hub) Register(ownerID string) <-chan []byte {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[ownerID]
	if set == nil {
		set = make(map[<-chan []byte]chan []byte)
		h.subs[ownerID] = set
	}
	set[ch] = ch
	return ch
}

// Unregister removes ch. It is safe to call more than once. The owner's entry
// is dropped with its last channel.
func (h *Hub) Unregister(ownerID string, ch <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[ownerID]
	if set == nil {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.subs, ownerID)
	}
}

// Notify offers payload to every channel registered for ownerID and returns
// how many accepted it. Channels are never closed, so sending after the lock
// is released is safe.
func (h *Hub) Notify(ownerID string, payload []byte) int {
	h.mu.Lock()
	targets := make([]chan []byte, 0, len(h.subs[ownerID]))
	for _, ch := range h.subs[ownerID] {
		targets = append(targets, ch)
	}
	h.mu.Unlock()

	delivered := 0
	for _, ch := range targets {
		select {
		case ch <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

// Publish satisfies Notifier for single-instance deployments.
func (h *Hub) Publish(ctx context.Context, ownerID string, payload []byte) error {
	h.Notify(ownerID, payload)
	return nil
}

func (h *Hub) HasSubscribers(ownerID string) bool {
	return h.Subscribers(ownerID) > 0
}

func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}

// Owners reports how many owners currently have at least one subscriber.
func (h *Hub) Owners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
