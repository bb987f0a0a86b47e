package observability

import (
	"context"

	"github.com/soulace/support-service/internal/events"
)

// RegisterEventCounters keeps the domain counters fed from the event
// stream so no service needs a metrics dependency.
func RegisterEventCounters(dispatcher events.Dispatcher, metrics *Metrics) {
	count := func(name string) events.EventHandler {
		return func(context.Context, events.Event) error {
			metrics.Inc(name)
			return nil
		}
	}
	dispatcher.Subscribe(events.EventRequestQueued, count(CounterSubmissions))
	dispatcher.Subscribe(events.EventRequestCancelled, count(CounterCancellations))
	dispatcher.Subscribe(events.EventSessionStarted, count(CounterMatches))
	dispatcher.Subscribe(events.EventCrisisDetected, count(CounterEscalations))
	dispatcher.Subscribe(events.EventSessionEnded, count(CounterSessionsEnded))
	dispatcher.Subscribe(events.EventSessionMessageAdded, count(CounterMessages))
}
