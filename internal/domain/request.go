package domain

import "time"

// Urgency enumerates how quickly a support request needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
	UrgencyUrgent Urgency = "URGENT"
)

// Rank maps urgency to its ordering weight, highest served first.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyUrgent:
		return 4
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the urgency is a known value.
func (u Urgency) Valid() bool {
	return u.Rank() > 0
}

// PendingMessage is text a requester sent while still waiting in the queue.
// Pending messages move into the session transcript once a match happens.
type PendingMessage struct {
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// Request is a requester's plea for a live support session. It is owned by
// the priority queue until a session claims it; after that it is never
// mutated again.
type Request struct {
	ID              string           `json:"id"`
	RequesterID     string           `json:"requester_id"`
	Concerns        []string         `json:"concerns"`
	Language        string           `json:"language"`
	Urgency         Urgency          `json:"urgency"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	InitialMessage  string           `json:"initial_message"`
	PendingMessages []PendingMessage `json:"pending_messages,omitempty"`
}
