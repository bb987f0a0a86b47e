package dto

import (
	"time"

	"github.com/soulace/support-service/internal/domain"
)

// RegisterWorkerRequest payload.
type RegisterWorkerRequest struct {
	Name        string   `json:"name"`
	Specialties []string `json:"specialties"`
	Languages   []string `json:"languages"`
}

// SetWorkerStatusRequest payload.
type SetWorkerStatusRequest struct {
	Status domain.WorkerStatus `json:"status"`
}

// WorkerResponse represents one directory entry.
type WorkerResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Specialties  []string            `json:"specialties"`
	Languages    []string            `json:"languages"`
	Status       domain.WorkerStatus `json:"status"`
	RegisteredAt time.Time           `json:"registered_at"`
}
