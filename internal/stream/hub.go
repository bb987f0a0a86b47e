// Package stream fans transcript and lifecycle events out to websocket
// subscribers, one topic per session.
package stream

import (
	"context"
	"sync"

	"github.com/soulace/support-service/internal/events"
)

// Update is one frame delivered to a session subscriber.
type Update struct {
	Type    events.EventType `json:"type"`
	Payload interface{}      `json:"payload"`
}

const subscriberBuffer = 16

// Hub tracks per-session subscribers. Slow subscribers drop frames rather
// than blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan Update
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan Update)}
}

// Subscribe returns a channel of updates for one session and a cancel
// function. The channel closes when the session ends or cancel runs.
func (h *Hub) Subscribe(sessionID string) (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan Update)
	}
	h.subs[sessionID][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subs[sessionID]; ok {
			if sub, ok := subs[id]; ok {
				delete(subs, id)
				close(sub)
			}
			if len(subs) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// RegisterHandlers wires the hub into the dispatcher.
func (h *Hub) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventSessionMessageAdded, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SessionMessageAddedPayload); ok {
			h.broadcast(payload.SessionID, Update{Type: event.Type, Payload: payload})
		}
		return nil
	})
	dispatcher.Subscribe(events.EventSessionEnded, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SessionEndedPayload); ok {
			h.broadcast(payload.SessionID, Update{Type: event.Type, Payload: payload})
			h.closeSession(payload.SessionID)
		}
		return nil
	})
}

func (h *Hub) broadcast(sessionID string, update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- update:
		default:
			// subscriber is not keeping up; drop the frame
		}
	}
}

func (h *Hub) closeSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[sessionID] {
		close(ch)
	}
	delete(h.subs, sessionID)
}
