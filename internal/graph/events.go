package graph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mindforge-ai/mindforge/internal/metrics"
)

// EventKind identifies a graph mutation.
type EventKind string

const (
	NodeAdded    EventKind = "node_added"
	NodeUpdated  EventKind = "node_updated"
	NodeRemoved  EventKind = "node_removed"
	EdgeAdded    EventKind = "edge_added"
	EdgeRemoved  EventKind = "edge_removed"
	GraphCleared EventKind = "graph_cleared"
)

// Event describes one graph mutation. Node and Edge are private copies;
// consumers may hold them indefinitely.
type Event struct {
	Kind EventKind `json:"kind"`
	Node *Node     `json:"node,omitempty"`
	Edge *Edge     `json:"edge,omitempty"`
	At   time.Time `json:"at"`
}

// Subscription delivers graph events on C until Close is called. The
// channel is bounded: events arriving while it is full are dropped.
type Subscription struct {
	C <-chan Event

	hub *Hub
	id  uint64
}

// Close unregisters the subscription and closes C.
func (sub *Subscription) Close() {
	sub.hub.unsubscribe(sub.id)
}

// Hub fans graph events out to subscribers without ever blocking the
// mutating caller.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]chan Event
	nextID  uint64
	dropped atomic.Uint64
}

func newHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Event)}
}

func (h *Hub) subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan Event, buffer)
	h.subs[h.nextID] = ch
	return &Subscription{C: ch, hub: h, id: h.nextID}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(ch)
}

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			metrics.GraphEventsDropped.Inc()
		}
	}
}

func (h *Hub) droppedCount() uint64 {
	return h.dropped.Load()
}
