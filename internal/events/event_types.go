package events

import (
	"time"

	"github.com/soulace/support-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestQueued       EventType = "request_queued"
	EventRequestCancelled    EventType = "request_cancelled"
	EventUrgencyEscalated    EventType = "urgency_escalated"
	EventCrisisDetected      EventType = "crisis_detected"
	EventSessionStarted      EventType = "session_started"
	EventSessionMessageAdded EventType = "session_message_added"
	EventSessionEnded        EventType = "session_ended"
	EventWorkerStatusChanged EventType = "worker_status_changed"
)

// Event represents a domain event emitted by services and the matcher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestQueuedPayload payload.
type RequestQueuedPayload struct {
	RequestID   string         `json:"request_id"`
	RequesterID string         `json:"requester_id"`
	Urgency     domain.Urgency `json:"urgency"`
	Position    int            `json:"position"`
}

// RequestCancelledPayload payload.
type RequestCancelledPayload struct {
	RequestID string `json:"request_id"`
}

// UrgencyEscalatedPayload payload.
type UrgencyEscalatedPayload struct {
	RequestID  string         `json:"request_id"`
	OldUrgency domain.Urgency `json:"old_urgency"`
	NewUrgency domain.Urgency `json:"new_urgency"`
}

// CrisisDetectedPayload carries enough context for external collaborators
// to surface emergency resources.
type CrisisDetectedPayload struct {
	RequestID   string `json:"request_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	RequesterID string `json:"requester_id"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	SessionID   string `json:"session_id"`
	RequestID   string `json:"request_id"`
	RequesterID string `json:"requester_id"`
	WorkerID    string `json:"worker_id"`
}

// SessionMessageAddedPayload payload.
type SessionMessageAddedPayload struct {
	SessionID string               `json:"session_id"`
	MessageID string               `json:"message_id"`
	Sender    domain.MessageSender `json:"sender"`
	Kind      domain.MessageKind   `json:"kind"`
	Body      string               `json:"body"`
	Seq       int                  `json:"seq"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	SessionID string              `json:"session_id"`
	WorkerID  string              `json:"worker_id"`
	EndedBy   domain.SessionParty `json:"ended_by"`
	Duration  time.Duration       `json:"duration"`
}

// WorkerStatusChangedPayload payload.
type WorkerStatusChangedPayload struct {
	WorkerID string              `json:"worker_id"`
	Status   domain.WorkerStatus `json:"status"`
}
