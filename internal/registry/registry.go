// Package registry tracks worker availability and capability tags, and owns
// the atomic claim step the matching engine relies on for exclusivity.
package registry

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/soulace/support-service/internal/domain"
)

// ErrBusy reports a refused transition away from BUSY. Only a session end
// releases a busy worker; an explicit status change never does.
var ErrBusy = errors.New("worker is busy")

// Persister writes worker records through to the durable store. Every
// status change goes through it.
type Persister interface {
	Save(ctx context.Context, worker *domain.Worker) error
}

// Registry is the in-memory availability view. It is rebuilt from the store
// on startup and kept write-through afterwards.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*domain.Worker
	// order preserves registration order, the deterministic tie-break for
	// candidate enumeration.
	order     []string
	persister Persister
}

// New creates an empty registry.
func New(persister Persister) *Registry {
	return &Registry{
		workers:   make(map[string]*domain.Worker),
		persister: persister,
	}
}

// Register adds or replaces a worker and persists it.
func (r *Registry) Register(ctx context.Context, worker *domain.Worker) error {
	r.mu.Lock()
	if _, exists := r.workers[worker.ID]; !exists {
		r.order = append(r.order, worker.ID)
	}
	clone := *worker
	r.workers[worker.ID] = &clone
	r.mu.Unlock()

	return r.persister.Save(ctx, worker)
}

// Load seeds a worker without persisting, for startup rebuilds.
func (r *Registry) Load(worker *domain.Worker) {
	r.mu.Lock()
	if _, exists := r.workers[worker.ID]; !exists {
		r.order = append(r.order, worker.ID)
	}
	clone := *worker
	r.workers[worker.ID] = &clone
	r.mu.Unlock()
}

// Get returns a copy of the worker, or false when unknown.
func (r *Registry) Get(workerID string) (domain.Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	worker, ok := r.workers[workerID]
	if !ok {
		return domain.Worker{}, false
	}
	return *worker, true
}

// SetStatus applies an explicit worker action (go_online / go_offline) and
// persists the change. Returns false when the worker is unknown. The BUSY
// check happens here, under the same lock TryClaim takes, so a claim landing
// between a caller's read and this write cannot be overwritten.
func (r *Registry) SetStatus(ctx context.Context, workerID string, status domain.WorkerStatus) (bool, error) {
	r.mu.Lock()
	worker, ok := r.workers[workerID]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	if worker.Status == domain.WorkerStatusBusy {
		r.mu.Unlock()
		return true, ErrBusy
	}
	previous := worker.Status
	worker.Status = status
	snapshot := *worker
	r.mu.Unlock()

	if err := r.persister.Save(ctx, &snapshot); err != nil {
		r.revertStatus(workerID, previous)
		return true, err
	}
	return true, nil
}

// TryClaim atomically transitions the worker AVAILABLE→BUSY. It fails when
// the worker is in any other status, which is how two concurrent match
// passes are kept from sharing a worker.
func (r *Registry) TryClaim(ctx context.Context, workerID string) (bool, error) {
	r.mu.Lock()
	worker, ok := r.workers[workerID]
	if !ok || worker.Status != domain.WorkerStatusAvailable {
		r.mu.Unlock()
		return false, nil
	}
	worker.Status = domain.WorkerStatusBusy
	snapshot := *worker
	r.mu.Unlock()

	if err := r.persister.Save(ctx, &snapshot); err != nil {
		r.revertStatus(workerID, domain.WorkerStatusAvailable)
		return false, err
	}
	return true, nil
}

// Release transitions BUSY→AVAILABLE. Releasing a worker that is not busy
// is a no-op, which is what makes session end idempotent at this layer.
func (r *Registry) Release(ctx context.Context, workerID string) error {
	r.mu.Lock()
	worker, ok := r.workers[workerID]
	if !ok || worker.Status != domain.WorkerStatusBusy {
		r.mu.Unlock()
		return nil
	}
	worker.Status = domain.WorkerStatusAvailable
	snapshot := *worker
	r.mu.Unlock()

	if err := r.persister.Save(ctx, &snapshot); err != nil {
		r.revertStatus(workerID, domain.WorkerStatusBusy)
		return err
	}
	return nil
}

// FindCandidates returns available workers compatible with the request, in
// registration order. Compatibility needs at least one specialty matching
// the request's concerns, or no concerns on the request, or no declared
// specialties on the worker. Workers speaking the request's language come
// first; when none do, the remaining compatible workers are returned as an
// explicit fallback rather than matching nobody.
func (r *Registry) FindCandidates(request *domain.Request) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var withLanguage, withoutLanguage []string
	for _, id := range r.order {
		worker := r.workers[id]
		if worker.Status != domain.WorkerStatusAvailable {
			continue
		}
		if !specialtiesOverlap(worker.Capabilities.Specialties, request.Concerns) {
			continue
		}
		if speaksLanguage(worker.Capabilities.Languages, request.Language) {
			withLanguage = append(withLanguage, id)
		} else {
			withoutLanguage = append(withoutLanguage, id)
		}
	}
	if len(withLanguage) > 0 {
		return withLanguage
	}
	return withoutLanguage
}

// Snapshot returns copies of all workers in registration order.
func (r *Registry) Snapshot() []domain.Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	workers := make([]domain.Worker, 0, len(r.order))
	for _, id := range r.order {
		workers = append(workers, *r.workers[id])
	}
	return workers
}

func (r *Registry) revertStatus(workerID string, status domain.WorkerStatus) {
	r.mu.Lock()
	if worker, ok := r.workers[workerID]; ok {
		worker.Status = status
	}
	r.mu.Unlock()
}

func specialtiesOverlap(specialties, concerns []string) bool {
	if len(concerns) == 0 || len(specialties) == 0 {
		return true
	}
	for _, concern := range concerns {
		for _, specialty := range specialties {
			if strings.EqualFold(concern, specialty) {
				return true
			}
		}
	}
	return false
}

func speaksLanguage(languages []string, language string) bool {
	if language == "" {
		return true
	}
	for _, candidate := range languages {
		if strings.EqualFold(candidate, language) {
			return true
		}
	}
	return false
}
