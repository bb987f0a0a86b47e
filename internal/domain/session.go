package domain

import "time"

// SessionStatus enumerates session lifecycle states.
type SessionStatus string

const (
	// SessionStatusWaiting exists for a matched-but-not-yet-accepted
	// session. The current policy activates sessions in the same step as
	// matching, so the state is transient, but it stays representable for
	// a future accept/decline flow.
	SessionStatusWaiting SessionStatus = "WAITING"
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusEnded   SessionStatus = "ENDED"
)

// SessionParty identifies which side of a session acted.
type SessionParty string

const (
	PartyRequester SessionParty = "REQUESTER"
	PartyWorker    SessionParty = "WORKER"
)

// Session is a live conversation between one requester and exactly one
// worker. While a session is ACTIVE its worker is BUSY in the registry;
// that pairing is the exclusivity invariant the matcher preserves.
type Session struct {
	ID           string        `json:"id"`
	RequestID    string        `json:"request_id"`
	RequesterID  string        `json:"requester_id"`
	WorkerID     string        `json:"worker_id"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	EndedBy      SessionParty  `json:"ended_by,omitempty"`
	MessageCount int           `json:"message_count"`
}
