package dto

import (
	"time"

	"github.com/soulace/support-service/internal/domain"
)

// PostMessageRequest payload.
type PostMessageRequest struct {
	Sender domain.MessageSender `json:"sender"`
	Body   string               `json:"body"`
}

// EndSessionRequest payload.
type EndSessionRequest struct {
	EndedBy domain.SessionParty `json:"ended_by"`
}

// MessageResponse represents one transcript entry.
type MessageResponse struct {
	ID     string               `json:"id"`
	Sender domain.MessageSender `json:"sender"`
	Kind   domain.MessageKind   `json:"kind"`
	Body   string               `json:"body"`
	Seq    int                  `json:"seq"`
	SentAt time.Time            `json:"sent_at"`
}

// SessionSummary response.
type SessionSummary struct {
	ID          string               `json:"id"`
	RequestID   string               `json:"request_id"`
	RequesterID string               `json:"requester_id"`
	WorkerID    string               `json:"worker_id"`
	Status      domain.SessionStatus `json:"status"`
	StartedAt   time.Time            `json:"started_at"`
	EndedAt     *time.Time           `json:"ended_at,omitempty"`
}

// SessionDetailResponse provides full session info with transcript.
type SessionDetailResponse struct {
	SessionSummary
	EndedBy    domain.SessionParty `json:"ended_by,omitempty"`
	Transcript []MessageResponse   `json:"transcript"`
}
