package domain

import "time"

// MessageSender indicates who authored a message.
type MessageSender string

const (
	SenderRequester MessageSender = "REQUESTER"
	SenderWorker    MessageSender = "WORKER"
)

// MessageKind differentiates conversation text from lifecycle notices.
type MessageKind string

const (
	MessageKindText   MessageKind = "TEXT"
	MessageKindSystem MessageKind = "SYSTEM"
)

// Message is one immutable entry in a session transcript. Seq is assigned
// by the session manager at append time and fixes the transcript order.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Sender    MessageSender `json:"sender"`
	Kind      MessageKind   `json:"kind"`
	Body      string        `json:"body"`
	Seq       int           `json:"seq"`
	SentAt    time.Time     `json:"sent_at"`
}
