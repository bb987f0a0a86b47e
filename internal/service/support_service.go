package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/crisis"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
	"github.com/soulace/support-service/internal/kv"
	"github.com/soulace/support-service/internal/matcher"
	"github.com/soulace/support-service/internal/queue"
	"github.com/soulace/support-service/internal/repository"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// RequestState is the submitter-visible status of a request.
type RequestState string

const (
	RequestStateQueued  RequestState = "queued"
	RequestStateMatched RequestState = "matched"
)

// SubmitInput describes a support request submission.
type SubmitInput struct {
	RequesterID    string
	Concerns       []string
	Language       string
	Urgency        domain.Urgency
	InitialMessage string
}

// RequestStatus is the answer to a submission or a status poll. A submitter
// always sees queued or matched, never a raw store error.
type RequestStatus struct {
	RequestID     string
	State         RequestState
	QueuePosition int
	EstimatedWait time.Duration
	SessionID     string
	Urgency       domain.Urgency
	CrisisFlagged bool
}

// QueueEntry is one row of the waiting-list snapshot.
type QueueEntry struct {
	RequestID   string
	RequesterID string
	Urgency     domain.Urgency
	SubmittedAt time.Time
	Position    int
}

// SupportService accepts submissions, tracks queue state and drives the
// matching engine on each arrival.
type SupportService struct {
	queue      *queue.Queue
	requests   repository.RequestRepository
	engine     *matcher.Engine
	detector   crisis.Detector
	dispatcher events.Dispatcher
	clk        clock.Clock
	logger     *zap.Logger
}

// SupportDependencies bundles collaborators.
type SupportDependencies struct {
	Queue       *queue.Queue
	RequestRepo repository.RequestRepository
	Engine      *matcher.Engine
	Detector    crisis.Detector
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	return &SupportService{
		queue:      deps.Queue,
		requests:   deps.RequestRepo,
		engine:     deps.Engine,
		detector:   deps.Detector,
		dispatcher: deps.Dispatcher,
		clk:        deps.Clock,
		logger:     deps.Logger,
	}
}

// Submit creates a request, queues it and immediately attempts a match.
// Crisis language in the initial message escalates the request to URGENT
// before it ever enters the queue.
func (s *SupportService) Submit(ctx context.Context, input SubmitInput) (*RequestStatus, error) {
	if strings.TrimSpace(input.RequesterID) == "" {
		return nil, apperrors.NewValidationError("requester_id required", nil)
	}
	if strings.TrimSpace(input.InitialMessage) == "" {
		return nil, apperrors.NewValidationError("initial_message required", nil)
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = domain.UrgencyMedium
	}
	if !urgency.Valid() {
		return nil, apperrors.NewValidationError("unknown urgency", map[string]any{"urgency": string(input.Urgency)})
	}

	crisisFlagged := s.detector.Detect(input.InitialMessage)
	if crisisFlagged {
		urgency = domain.UrgencyUrgent
	}

	request := &domain.Request{
		ID:             uuid.NewString(),
		RequesterID:    input.RequesterID,
		Concerns:       input.Concerns,
		Language:       input.Language,
		Urgency:        urgency,
		SubmittedAt:    s.clk.Now(),
		InitialMessage: strings.TrimSpace(input.InitialMessage),
	}

	if err := s.requests.Save(ctx, request); err != nil {
		return nil, apperrors.NewUnavailable("could not persist request", err)
	}
	if err := s.requests.MarkQueued(ctx, request.ID); err != nil {
		return nil, apperrors.NewUnavailable("could not persist request", err)
	}
	s.queue.Enqueue(request)

	s.publish(ctx, events.EventRequestQueued, events.RequestQueuedPayload{
		RequestID:   request.ID,
		RequesterID: request.RequesterID,
		Urgency:     request.Urgency,
		Position:    s.queue.Position(request.ID),
	})
	if crisisFlagged {
		s.publish(ctx, events.EventCrisisDetected, events.CrisisDetectedPayload{
			RequestID:   request.ID,
			RequesterID: request.RequesterID,
		})
	}

	s.engine.MatchPass(ctx)

	status, err := s.Status(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	status.CrisisFlagged = crisisFlagged
	return status, nil
}

// Status reports queued-or-matched for a request.
func (s *SupportService) Status(ctx context.Context, requestID string) (*RequestStatus, error) {
	sessionID, err := s.requests.SessionFor(ctx, requestID)
	if err == nil {
		return &RequestStatus{
			RequestID: requestID,
			State:     RequestStateMatched,
			SessionID: sessionID,
		}, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return nil, apperrors.NewUnavailable("store unavailable", err)
	}

	request := s.queue.Get(requestID)
	if request == nil {
		return nil, apperrors.NewNotFound("request", map[string]any{"id": requestID})
	}
	position := s.queue.Position(requestID)
	return &RequestStatus{
		RequestID:     requestID,
		State:         RequestStateQueued,
		QueuePosition: position,
		EstimatedWait: s.engine.EstimateWait(position),
		Urgency:       request.Urgency,
	}, nil
}

// Cancel removes a still-queued request. A matched request can no longer be
// cancelled; its session has to be ended instead.
func (s *SupportService) Cancel(ctx context.Context, requestID string) error {
	if _, err := s.requests.SessionFor(ctx, requestID); err == nil {
		return apperrors.NewInvalidState("request already matched; end the session instead",
			map[string]any{"request_id": requestID})
	} else if !errors.Is(err, kv.ErrNotFound) {
		return apperrors.NewUnavailable("store unavailable", err)
	}

	if s.queue.Remove(requestID) == nil {
		return apperrors.NewNotFound("request", map[string]any{"id": requestID})
	}
	if err := s.requests.UnmarkQueued(ctx, requestID); err != nil {
		s.logger.Warn("unmark queued failed", zap.String("request_id", requestID), zap.Error(err))
	}
	s.publish(ctx, events.EventRequestCancelled, events.RequestCancelledPayload{RequestID: requestID})
	return nil
}

// AppendToQueued records a message a requester sends while still waiting.
// The text runs through crisis detection; a hit escalates the request to
// URGENT in place. Urgency never goes down, and repeated detection on an
// already-urgent request changes nothing.
func (s *SupportService) AppendToQueued(ctx context.Context, requestID, body string) (*RequestStatus, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	request, queued := s.queue.AppendPending(requestID, domain.PendingMessage{
		Body:   body,
		SentAt: s.clk.Now(),
	})
	if !queued {
		if _, err := s.requests.SessionFor(ctx, requestID); err == nil {
			return nil, apperrors.NewInvalidState("request already matched; post to the session instead",
				map[string]any{"request_id": requestID})
		}
		return nil, apperrors.NewNotFound("request", map[string]any{"id": requestID})
	}

	if s.detector.Detect(body) {
		oldUrgency := request.Urgency
		if s.queue.UpgradeUrgency(requestID, domain.UrgencyUrgent) {
			request.Urgency = domain.UrgencyUrgent
			s.publish(ctx, events.EventUrgencyEscalated, events.UrgencyEscalatedPayload{
				RequestID:  requestID,
				OldUrgency: oldUrgency,
				NewUrgency: domain.UrgencyUrgent,
			})
		}
		s.publish(ctx, events.EventCrisisDetected, events.CrisisDetectedPayload{
			RequestID:   requestID,
			RequesterID: request.RequesterID,
		})
	}

	if err := s.requests.Save(ctx, request); err != nil {
		return nil, apperrors.NewUnavailable("could not persist request", err)
	}

	s.engine.MatchPass(ctx)
	return s.Status(ctx, requestID)
}

// QueueSnapshot returns the ordered waiting list.
func (s *SupportService) QueueSnapshot() []QueueEntry {
	ordered := s.queue.PeekOrdered()
	entries := make([]QueueEntry, 0, len(ordered))
	for i, request := range ordered {
		entries = append(entries, QueueEntry{
			RequestID:   request.ID,
			RequesterID: request.RequesterID,
			Urgency:     request.Urgency,
			SubmittedAt: request.SubmittedAt,
			Position:    i + 1,
		})
	}
	return entries
}

func (s *SupportService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.clk.Now(),
		Payload:   payload,
	})
}
