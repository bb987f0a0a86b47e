package events

import (
	"context"
	"sync"
)

// EventHandler consumes one published event. Handlers run on the
// publisher's goroutine.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to subscribers. Delivery is synchronous,
// which is what lets a submission observe the match pass its own
// request_queued event triggered before the response is built.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type memoryDispatcher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]EventHandler
}

// NewInMemoryDispatcher builds the process-local dispatcher. Events never
// cross process boundaries; every backend uses this implementation.
func NewInMemoryDispatcher() Dispatcher {
	return &memoryDispatcher{subscribers: make(map[EventType][]EventHandler)}
}

// Publish delivers the event to every subscriber of its type, in
// subscription order. A failing handler does not stop delivery to the
// rest; the matching engine and the stream hub must not depend on each
// other succeeding.
func (d *memoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := make([]EventHandler, len(d.subscribers[event.Type]))
	copy(handlers, d.subscribers[event.Type])
	d.mu.RUnlock()

	for _, handle := range handlers {
		_ = handle(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for one event type. Registration is
// expected at wiring time; a handler added mid-publish is not seen by that
// publish.
func (d *memoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[eventType] = append(d.subscribers[eventType], handler)
}
