package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/crisis"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/kv"
	"github.com/soulace/support-service/internal/registry"
	"github.com/soulace/support-service/internal/repository"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// SessionService owns the session state machine and is the single
// authoritative append point for transcripts.
type SessionService struct {
	// mu serializes all session mutations so transcript order is exactly
	// insertion order as observed here.
	mu sync.Mutex

	sessions   repository.SessionRepository
	messages   repository.MessageRepository
	requests   repository.RequestRepository
	registry   *registry.Registry
	dispatcher events.Dispatcher
	detector   crisis.Detector
	clk        clock.Clock
	logger     *zap.Logger
}

// SessionDependencies bundles collaborators.
type SessionDependencies struct {
	SessionRepo repository.SessionRepository
	MessageRepo repository.MessageRepository
	RequestRepo repository.RequestRepository
	Registry    *registry.Registry
	Dispatcher  events.Dispatcher
	Detector    crisis.Detector
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	return &SessionService{
		sessions:   deps.SessionRepo,
		messages:   deps.MessageRepo,
		requests:   deps.RequestRepo,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		detector:   deps.Detector,
		clk:        deps.Clock,
		logger:     deps.Logger,
	}
}

// Create builds an active session for a claimed request/worker pair,
// persists it, and seeds the transcript: a system notice announcing the
// session, then the requester's initial message and anything they sent
// while waiting. A seed write that still fails after retries aborts the
// whole creation, so the engine releases the claim and the request stays
// queued rather than starting a session with the opening words missing.
// Matching and acceptance are one step in the current policy, so the
// WAITING state is passed through without being stored.
func (s *SessionService) Create(ctx context.Context, request *domain.Request, workerID string) (*domain.Session, error) {
	s.mu.Lock()

	now := s.clk.Now()
	session := &domain.Session{
		ID:          uuid.NewString(),
		RequestID:   request.ID,
		RequesterID: request.RequesterID,
		WorkerID:    workerID,
		Status:      domain.SessionStatusActive,
		StartedAt:   now,
	}

	workerName := workerID
	if worker, ok := s.registry.Get(workerID); ok && worker.Name != "" {
		workerName = worker.Name
	}

	// messages are written before the session record; until the record and
	// the request pointer exist, nothing references the transcript
	var published []events.Event
	seed := func(sender domain.MessageSender, kind domain.MessageKind, body string) error {
		event, err := s.appendLocked(ctx, session, sender, kind, body)
		if err != nil {
			return apperrors.NewUnavailable("could not seed transcript", err)
		}
		published = append(published, event)
		return nil
	}

	notice := fmt.Sprintf("You are now connected with %s. This conversation is confidential.", workerName)
	if err := seed(domain.SenderWorker, domain.MessageKindSystem, notice); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := seed(domain.SenderRequester, domain.MessageKindText, request.InitialMessage); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	for _, pending := range request.PendingMessages {
		if err := seed(domain.SenderRequester, domain.MessageKindText, pending.Body); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.requests.SetSession(ctx, request.ID, session.ID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.publish(ctx, events.EventSessionStarted, events.SessionStartedPayload{
		SessionID:   session.ID,
		RequestID:   request.ID,
		RequesterID: request.RequesterID,
		WorkerID:    workerID,
	})
	for _, event := range published {
		_ = s.dispatcher.Publish(ctx, event)
	}
	return session, nil
}

// Append adds a message to an active session. Appending to an ended
// session is a caller bug and reported as InvalidState, never retried.
func (s *SessionService) Append(ctx context.Context, sessionID string, sender domain.MessageSender, body string) (*domain.Message, error) {
	s.mu.Lock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, mapStoreError(err, "session", sessionID)
	}
	if session.Status != domain.SessionStatusActive {
		s.mu.Unlock()
		return nil, apperrors.NewInvalidState("session is not active",
			map[string]any{"session_id": sessionID, "status": string(session.Status)})
	}

	event, message, err := s.appendMessageLocked(ctx, session, sender, domain.MessageKindText, body)
	if err != nil {
		s.mu.Unlock()
		return nil, apperrors.NewUnavailable("could not persist message", err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.mu.Unlock()
		return nil, apperrors.NewUnavailable("could not persist session", err)
	}
	s.mu.Unlock()

	_ = s.dispatcher.Publish(ctx, event)

	if sender == domain.SenderRequester && s.detector != nil && s.detector.Detect(body) {
		s.publish(ctx, events.EventCrisisDetected, events.CrisisDetectedPayload{
			SessionID:   sessionID,
			RequesterID: session.RequesterID,
		})
	}
	return message, nil
}

// End transitions the session to ENDED and releases its worker. Calling it
// on an already-ended session is a no-op success; either party may race to
// close.
func (s *SessionService) End(ctx context.Context, sessionID string, endedBy domain.SessionParty) (*domain.Session, error) {
	s.mu.Lock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, mapStoreError(err, "session", sessionID)
	}
	if session.Status == domain.SessionStatusEnded {
		s.mu.Unlock()
		return session, nil
	}

	var farewellEvent *events.Event
	farewell := "Session ended. Thank you for talking today. Take care."
	if event, appendErr := s.appendLocked(ctx, session, domain.SenderWorker, domain.MessageKindSystem, farewell); appendErr == nil {
		farewellEvent = &event
	}

	now := s.clk.Now()
	session.Status = domain.SessionStatusEnded
	session.EndedAt = &now
	session.EndedBy = endedBy
	if err := s.sessions.Save(ctx, session); err != nil {
		s.mu.Unlock()
		return nil, apperrors.NewUnavailable("could not persist session", err)
	}
	s.mu.Unlock()

	if farewellEvent != nil {
		_ = s.dispatcher.Publish(ctx, *farewellEvent)
	}

	if err := s.registry.Release(ctx, session.WorkerID); err != nil {
		s.logger.Error("worker release failed",
			zap.String("worker_id", session.WorkerID), zap.Error(err))
	}

	s.publish(ctx, events.EventSessionEnded, events.SessionEndedPayload{
		SessionID: session.ID,
		WorkerID:  session.WorkerID,
		EndedBy:   endedBy,
		Duration:  now.Sub(session.StartedAt),
	})
	return session, nil
}

// Get returns the session with its full transcript.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.Session, []domain.Message, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, mapStoreError(err, "session", sessionID)
	}
	transcript, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.NewUnavailable("could not load transcript", err)
	}
	return session, transcript, nil
}

// ListByRequester returns the requester's sessions ordered by start time.
func (s *SessionService) ListByRequester(ctx context.Context, requesterID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperrors.NewUnavailable("could not list sessions", err)
	}
	return sessions, nil
}

// ListByWorker returns the worker's sessions ordered by start time.
func (s *SessionService) ListByWorker(ctx context.Context, workerID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByWorker(ctx, workerID)
	if err != nil {
		return nil, apperrors.NewUnavailable("could not list sessions", err)
	}
	return sessions, nil
}

// appendLocked writes a message and returns the event to publish once the
// service lock is released; publishing under the lock could re-enter the
// session manager through a subscriber.
func (s *SessionService) appendLocked(ctx context.Context, session *domain.Session, sender domain.MessageSender, kind domain.MessageKind, body string) (events.Event, error) {
	event, _, err := s.appendMessageLocked(ctx, session, sender, kind, body)
	if err != nil {
		s.logger.Error("message append failed",
			zap.String("session_id", session.ID), zap.Error(err))
	}
	return event, err
}

func (s *SessionService) appendMessageLocked(ctx context.Context, session *domain.Session, sender domain.MessageSender, kind domain.MessageKind, body string) (events.Event, *domain.Message, error) {
	message := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Sender:    sender,
		Kind:      kind,
		Body:      body,
		Seq:       session.MessageCount + 1,
		SentAt:    s.clk.Now(),
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return events.Event{}, nil, err
	}
	session.MessageCount++

	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionMessageAdded,
		Timestamp: message.SentAt,
		Payload: events.SessionMessageAddedPayload{
			SessionID: session.ID,
			MessageID: message.ID,
			Sender:    sender,
			Kind:      kind,
			Body:      body,
			Seq:       message.Seq,
		},
	}
	return event, message, nil
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.clk.Now(),
		Payload:   payload,
	})
}

func mapStoreError(err error, resource, id string) error {
	if errors.Is(err, kv.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewUnavailable("store unavailable", err)
}
