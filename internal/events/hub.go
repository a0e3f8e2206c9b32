// Package events implements the directory's audit event broadcast hub: a
// bounded, non-blocking fan-out from directory mutations to any number of
// live subscribers (currently, websocket-connected operators).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one published directory change.
type AuditEvent struct {
	ID       uuid.UUID      `json:"id"`
	Action   string         `json:"action"`
	ActorID  *uuid.UUID     `json:"actor_id,omitempty"`
	TargetID *uuid.UUID     `json:"target_id,omitempty"`
	IPAddr   string         `json:"ip_addr,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Time     time.Time      `json:"time"`
}

// subscriberBufferSize is the capacity of each subscriber's channel. A
// subscriber that falls this far behind is dropped rather than allowed to
// backpressure Publish.
const subscriberBufferSize = 64

// Hub fans AuditEvents out to every current subscriber. Registration and
// deregistration are serialized through a single event loop (Run), the same
// single-writer shape this codebase's websocket hub uses for its client
// registry; Publish itself never blocks on a slow subscriber.
type Hub struct {
	subscribers map[chan AuditEvent]struct{}
	mu          sync.RWMutex

	register   chan chan AuditEvent
	unregister chan chan AuditEvent
}

// NewHub creates an idle Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan AuditEvent]struct{}),
		register:    make(chan chan AuditEvent, 16),
		unregister:  make(chan chan AuditEvent, 16),
	}
}

// Run starts the hub's event loop. It exits when ctx is cancelled, closing
// every subscriber channel so listeners unwind cleanly.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ch := <-h.register:
			h.mu.Lock()
			h.subscribers[ch] = struct{}{}
			h.mu.Unlock()

		case ch := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for ch := range h.subscribers {
				close(ch)
			}
			h.subscribers = make(map[chan AuditEvent]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish fans ev out to every current subscriber. It never blocks: a
// subscriber whose buffer is full is dropped instead of stalling the
// directory mutation that produced ev.
func (h *Hub) Publish(ev AuditEvent) {
	h.mu.RLock()
	targets := make([]chan AuditEvent, 0, len(h.subscribers))
	for ch := range h.subscribers {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			h.unregister <- ch
		}
	}
}

// Subscribe registers a new listener and returns the channel it will
// receive events on, plus an unsubscribe func the caller must defer.
func (h *Hub) Subscribe() (ch <-chan AuditEvent, unsubscribe func()) {
	c := make(chan AuditEvent, subscriberBufferSize)
	h.register <- c
	return c, func() { h.unregister <- c }
}

// SubscriberCount returns the number of currently connected subscribers,
// for metrics and health endpoints.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
