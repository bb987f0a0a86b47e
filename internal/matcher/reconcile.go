package matcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/kv"
)

// Reconcile rebuilds the in-memory queue and registry from the durable
// store and repairs any half-applied claim left by a crash: a worker
// referenced by an active session must be busy, and a busy worker with no
// active session is released.
func (e *Engine) Reconcile(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	workers, err := e.deps.WorkerRepo.List(ctx)
	if err != nil {
		return err
	}
	sessions, err := e.deps.SessionRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	activeWorkers := make(map[string]bool)
	for _, session := range sessions {
		if session.Status == domain.SessionStatusActive {
			activeWorkers[session.WorkerID] = true
		}
	}

	for i := range workers {
		worker := workers[i]
		expected := worker.Status
		if activeWorkers[worker.ID] {
			expected = domain.WorkerStatusBusy
		} else if worker.Status == domain.WorkerStatusBusy {
			// crash between registry write and session write
			expected = domain.WorkerStatusAvailable
		}
		if expected != worker.Status {
			e.deps.Logger.Info("reconciling worker status",
				zap.String("worker_id", worker.ID),
				zap.String("from", string(worker.Status)),
				zap.String("to", string(expected)))
			worker.Status = expected
			if err := e.deps.WorkerRepo.Save(ctx, &worker); err != nil {
				return err
			}
		}
		e.deps.Registry.Load(&worker)
	}

	queued, err := e.deps.RequestRepo.ListQueued(ctx)
	if err != nil {
		return err
	}
	for i := range queued {
		request := queued[i]
		// a stale marker means the request was matched but the unmark
		// write was lost; drop it instead of re-queueing
		if _, err := e.deps.RequestRepo.SessionFor(ctx, request.ID); err == nil {
			if err := e.deps.RequestRepo.UnmarkQueued(ctx, request.ID); err != nil {
				e.deps.Logger.Warn("dropping stale queue marker failed",
					zap.String("request_id", request.ID), zap.Error(err))
			}
			continue
		} else if !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		e.deps.Queue.Enqueue(&request)
	}

	e.deps.Logger.Info("reconciled state",
		zap.Int("workers", len(workers)),
		zap.Int("queued", e.deps.Queue.Len()),
		zap.Int("sessions", len(sessions)))
	return nil
}
