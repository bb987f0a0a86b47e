package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/registry"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// WorkerInput describes a worker registration.
type WorkerInput struct {
	Name        string
	Specialties []string
	Languages   []string
}

// WorkerService manages the worker directory and explicit status changes.
type WorkerService struct {
	registry   *registry.Registry
	dispatcher events.Dispatcher
	clk        clock.Clock
	logger     *zap.Logger
}

// WorkerDependencies bundles collaborators.
type WorkerDependencies struct {
	Registry   *registry.Registry
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewWorkerService constructs the service.
func NewWorkerService(deps WorkerDependencies) *WorkerService {
	return &WorkerService{
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		clk:        deps.Clock,
		logger:     deps.Logger,
	}
}

// Register adds a worker to the directory. Workers start OFFLINE and come
// online with an explicit status change.
func (s *WorkerService) Register(ctx context.Context, input WorkerInput) (*domain.Worker, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	worker := &domain.Worker{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Capabilities: domain.Capabilities{Specialties: input.Specialties, Languages: input.Languages},
		Status:       domain.WorkerStatusOffline,
		RegisteredAt: s.clk.Now(),
	}
	if err := s.registry.Register(ctx, worker); err != nil {
		return nil, apperrors.NewUnavailable("could not persist worker", err)
	}
	s.logger.Info("worker registered", zap.String("worker_id", worker.ID))
	return worker, nil
}

// SetStatus applies go_online / go_offline. BUSY is owned by the matching
// engine and cannot be set directly, and a worker with an active session
// cannot slip offline around it.
func (s *WorkerService) SetStatus(ctx context.Context, workerID string, status domain.WorkerStatus) error {
	if !status.Valid() || status == domain.WorkerStatusBusy {
		return apperrors.NewValidationError("status must be AVAILABLE or OFFLINE",
			map[string]any{"status": string(status)})
	}

	current, ok := s.registry.Get(workerID)
	if !ok {
		return apperrors.NewNotFound("worker", map[string]any{"id": workerID})
	}
	if current.Status == status {
		return nil
	}

	// the registry refuses to move a BUSY worker under its own lock; a
	// pre-read here could not see a claim landing concurrently
	found, err := s.registry.SetStatus(ctx, workerID, status)
	if errors.Is(err, registry.ErrBusy) {
		return apperrors.NewConflict("worker has an active session",
			map[string]any{"worker_id": workerID})
	}
	if err != nil {
		return apperrors.NewUnavailable("could not persist worker", err)
	}
	if !found {
		return apperrors.NewNotFound("worker", map[string]any{"id": workerID})
	}

	// subscribers include the matching engine, which runs a pass when a
	// worker becomes available
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventWorkerStatusChanged,
		Timestamp: s.clk.Now(),
		Payload: events.WorkerStatusChangedPayload{
			WorkerID: workerID,
			Status:   status,
		},
	})
	return nil
}

// List returns the directory in registration order.
func (s *WorkerService) List() []domain.Worker {
	return s.registry.Snapshot()
}

// Get returns one worker.
func (s *WorkerService) Get(workerID string) (*domain.Worker, error) {
	worker, ok := s.registry.Get(workerID)
	if !ok {
		return nil, apperrors.NewNotFound("worker", map[string]any{"id": workerID})
	}
	return &worker, nil
}
