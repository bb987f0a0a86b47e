package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/clock"
	"github.com/soulace/support-service/internal/config"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/events"
)

// cannedReplies rotate through the simulated counsellor's responses while
// no real worker transport is hooked up.
var cannedReplies = []string{
	"I understand how you're feeling. Thank you for sharing that with me.",
	"That sounds really challenging. Can you tell me more about when this started?",
	"You're taking a brave step by reaching out. Let's work through this together.",
	"I hear you, and your feelings are completely valid. Have you experienced this before?",
	"That's a lot to handle. What kind of support do you have around you?",
	"It takes courage to open up about these feelings. How has this been affecting your daily life?",
	"I'm here to support you through this. What would feel most helpful right now?",
}

// ResponderService simulates a counsellor typing a reply some delay after
// each requester message. It is an external collaborator the matching core
// is agnostic to, disabled unless configured on. Delays run on the clock
// abstraction, so tests fast-forward instead of sleeping.
type ResponderService struct {
	sessions   *SessionService
	dispatcher events.Dispatcher
	clk        clock.Clock
	logger     *zap.Logger
	cfg        config.ResponderConfig

	mu      sync.Mutex
	pending map[string]clock.Timer
}

// NewResponderService creates the service.
func NewResponderService(sessions *SessionService, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger, cfg config.ResponderConfig) *ResponderService {
	return &ResponderService{
		sessions:   sessions,
		dispatcher: dispatcher,
		clk:        clk,
		logger:     logger,
		cfg:        cfg,
		pending:    make(map[string]clock.Timer),
	}
}

// RegisterHandlers subscribes to transcript and lifecycle events.
func (r *ResponderService) RegisterHandlers() {
	if !r.cfg.Enabled || r.dispatcher == nil {
		return
	}
	r.dispatcher.Subscribe(events.EventSessionMessageAdded, r.handleMessageAdded)
	r.dispatcher.Subscribe(events.EventSessionEnded, r.handleSessionEnded)
}

func (r *ResponderService) handleMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionMessageAddedPayload)
	if !ok {
		return nil
	}
	if payload.Sender != domain.SenderRequester || payload.Kind != domain.MessageKindText {
		return nil
	}

	sessionID := payload.SessionID
	reply := cannedReplies[payload.Seq%len(cannedReplies)]

	r.mu.Lock()
	if timer, ok := r.pending[sessionID]; ok {
		timer.Stop()
	}
	r.pending[sessionID] = r.clk.AfterFunc(r.cfg.Delay(), func() {
		r.clearPending(sessionID)
		if _, err := r.sessions.Append(ctx, sessionID, domain.SenderWorker, reply); err != nil {
			// session may have ended in the meantime
			r.logger.Debug("simulated reply skipped",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	})
	r.mu.Unlock()
	return nil
}

func (r *ResponderService) handleSessionEnded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionEndedPayload)
	if !ok {
		return nil
	}
	r.mu.Lock()
	if timer, ok := r.pending[payload.SessionID]; ok {
		timer.Stop()
		delete(r.pending, payload.SessionID)
	}
	r.mu.Unlock()
	return nil
}

func (r *ResponderService) clearPending(sessionID string) {
	r.mu.Lock()
	delete(r.pending, sessionID)
	r.mu.Unlock()
}
