package domain

import "time"

// WorkerStatus enumerates a worker's availability.
type WorkerStatus string

const (
	WorkerStatusAvailable WorkerStatus = "AVAILABLE"
	WorkerStatusBusy      WorkerStatus = "BUSY"
	WorkerStatusOffline   WorkerStatus = "OFFLINE"
)

// Valid reports whether the status is a known value.
func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerStatusAvailable, WorkerStatusBusy, WorkerStatusOffline:
		return true
	}
	return false
}

// Capabilities describes what a worker can handle.
type Capabilities struct {
	Specialties []string `json:"specialties"`
	Languages   []string `json:"languages"`
}

// Worker models a counsellor who can be matched to at most one concurrent
// session. Capacity is fixed at one; the BUSY status encodes it.
type Worker struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
	Status       WorkerStatus `json:"status"`
	RegisteredAt time.Time    `json:"registered_at"`
}
