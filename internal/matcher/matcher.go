// Package matcher drains the priority queue against the availability
// registry, producing sessions. A match pass is the only place workers are
// claimed and queue entries consumed.
package matcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/queue"
	"github.com/soulace/support-service/internal/registry"
	"github.com/soulace/support-service/internal/repository"
)

// SessionCreator turns a claimed request/worker pair into a persisted
// active session. The session manager implements it.
type SessionCreator interface {
	Create(ctx context.Context, request *domain.Request, workerID string) (*domain.Session, error)
}

// Dependencies bundles what the engine needs.
type Dependencies struct {
	Queue       *queue.Queue
	Registry    *registry.Registry
	RequestRepo repository.RequestRepository
	SessionRepo repository.SessionRepository
	WorkerRepo  repository.WorkerRepository
	Sessions    SessionCreator
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger

	Tick        time.Duration
	AvgWindow   int
	DefaultWait time.Duration
}

// Engine runs matching passes. Passes are serialized by a single mutex; the
// registry claim is the only step that needs to be atomic on its own, so a
// coarse lock here costs nothing at expected pass rates.
type Engine struct {
	mu   sync.Mutex
	deps Dependencies

	tickMu    sync.Mutex
	tickTimer clock.Timer

	avgMu     sync.Mutex
	durations []time.Duration
}

// NewEngine creates the engine.
func NewEngine(deps Dependencies) *Engine {
	if deps.AvgWindow <= 0 {
		deps.AvgWindow = 20
	}
	if deps.DefaultWait <= 0 {
		deps.DefaultWait = 5 * time.Minute
	}
	if deps.Tick <= 0 {
		deps.Tick = 5 * time.Second
	}
	return &Engine{deps: deps}
}

// RegisterHandlers wires the engine's event triggers: a worker coming back
// available and a session ending both warrant a fresh pass, and ended
// sessions feed the rolling service duration.
func (e *Engine) RegisterHandlers(ctx context.Context) {
	e.deps.Dispatcher.Subscribe(events.EventWorkerStatusChanged, func(_ context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.WorkerStatusChangedPayload)
		if ok && payload.Status == domain.WorkerStatusAvailable {
			e.MatchPass(ctx)
		}
		return nil
	})
	e.deps.Dispatcher.Subscribe(events.EventSessionEnded, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SessionEndedPayload); ok {
			e.recordDuration(payload.Duration)
		}
		e.MatchPass(ctx)
		return nil
	})
}

// Run arms the periodic safety-net tick. Stop cancels it.
func (e *Engine) Run(ctx context.Context) {
	e.scheduleTick(ctx)
}

// Stop cancels the pending tick.
func (e *Engine) Stop() {
	e.tickMu.Lock()
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	e.tickMu.Unlock()
}

func (e *Engine) scheduleTick(ctx context.Context) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.tickTimer = e.deps.Clock.AfterFunc(e.deps.Tick, func() {
		if ctx.Err() != nil {
			return
		}
		e.MatchPass(ctx)
		e.scheduleTick(ctx)
	})
}

// MatchPass scans the queue in rank order and pairs each matchable request
// with the first compatible worker that can be claimed. It returns how many
// sessions were started. Requests that cannot be matched stay queued; that
// is a status, not an error.
func (e *Engine) MatchPass(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	matched := 0
	for _, request := range e.deps.Queue.PeekOrdered() {
		candidates := e.deps.Registry.FindCandidates(request)
		for _, workerID := range candidates {
			claimed, err := e.deps.Registry.TryClaim(ctx, workerID)
			if err != nil {
				e.deps.Logger.Warn("claim persist failed",
					zap.String("worker_id", workerID), zap.Error(err))
				continue
			}
			if !claimed {
				// lost the race; next candidate for the same request
				continue
			}
			if e.finalizeMatch(ctx, request, workerID) {
				matched++
			}
			break
		}
	}
	return matched
}

// finalizeMatch creates the session and consumes the queue entry. The claim
// only becomes durable once the session record is written; a failure in
// between triggers a compensating release.
func (e *Engine) finalizeMatch(ctx context.Context, request *domain.Request, workerID string) bool {
	session, err := e.deps.Sessions.Create(ctx, request, workerID)
	if err != nil {
		e.deps.Logger.Error("session create failed, releasing worker",
			zap.String("request_id", request.ID),
			zap.String("worker_id", workerID),
			zap.Error(err))
		if releaseErr := e.deps.Registry.Release(ctx, workerID); releaseErr != nil {
			e.deps.Logger.Error("compensating release failed",
				zap.String("worker_id", workerID), zap.Error(releaseErr))
		}
		return false
	}

	e.deps.Queue.Remove(request.ID)
	if err := e.deps.RequestRepo.UnmarkQueued(ctx, request.ID); err != nil {
		// reconciliation drops the stale marker on next start
		e.deps.Logger.Warn("unmark queued failed",
			zap.String("request_id", request.ID), zap.Error(err))
	}

	e.deps.Logger.Info("request matched",
		zap.String("request_id", request.ID),
		zap.String("worker_id", workerID),
		zap.String("session_id", session.ID))
	return true
}

// Position reports the request's current 1-based queue position, computed
// lazily from the waiting set.
func (e *Engine) Position(requestID string) int {
	return e.deps.Queue.Position(requestID)
}

// EstimateWait derives an advisory wait estimate: position times the
// rolling average service duration. It never influences ordering.
func (e *Engine) EstimateWait(position int) time.Duration {
	if position <= 0 {
		return 0
	}
	return time.Duration(position) * e.averageDuration()
}

func (e *Engine) recordDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	e.avgMu.Lock()
	e.durations = append(e.durations, d)
	if len(e.durations) > e.deps.AvgWindow {
		e.durations = e.durations[len(e.durations)-e.deps.AvgWindow:]
	}
	e.avgMu.Unlock()
}

func (e *Engine) averageDuration() time.Duration {
	e.avgMu.Lock()
	defer e.avgMu.Unlock()
	if len(e.durations) == 0 {
		return e.deps.DefaultWait
	}
	var total time.Duration
	for _, d := range e.durations {
		total += d
	}
	return total / time.Duration(len(e.durations))
}
