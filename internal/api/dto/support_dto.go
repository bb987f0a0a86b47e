package dto

import (
	"time"

	"github.com/soulace/support-service/internal/domain"
)

// SubmitRequest payload.
type SubmitRequest struct {
	RequesterID    string         `json:"requester_id"`
	Concerns       []string       `json:"concerns"`
	Language       string         `json:"language"`
	Urgency        domain.Urgency `json:"urgency,omitempty"`
	InitialMessage string         `json:"initial_message"`
}

// RequestStatusResponse answers submissions and status polls.
type RequestStatusResponse struct {
	RequestID            string         `json:"request_id"`
	Status               string         `json:"status"`
	QueuePosition        int            `json:"queue_position,omitempty"`
	EstimatedWaitSeconds int            `json:"estimated_wait_seconds,omitempty"`
	SessionID            string         `json:"session_id,omitempty"`
	Urgency              domain.Urgency `json:"urgency,omitempty"`
	CrisisFlagged        bool           `json:"crisis_flagged,omitempty"`
}

// QueuedMessageRequest payload for messages sent while still waiting.
type QueuedMessageRequest struct {
	Body string `json:"body"`
}

// QueueEntryResponse is one row of the waiting-list snapshot.
type QueueEntryResponse struct {
	RequestID   string         `json:"request_id"`
	RequesterID string         `json:"requester_id"`
	Urgency     domain.Urgency `json:"urgency"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Position    int            `json:"position"`
}
