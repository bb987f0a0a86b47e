package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/soulace/support-service/internal/config"
	"github.com/soulace/support-service/internal/events"
)

// EscalationService is the side channel for crisis signals: it surfaces
// emergency resources to external collaborators whenever detection fires.
type EscalationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.CrisisConfig
}

// NewEscalationService creates the service.
func NewEscalationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.CrisisConfig) *EscalationService {
	return &EscalationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to escalation-relevant events.
func (n *EscalationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCrisisDetected, n.handleCrisisDetected)
	n.dispatcher.Subscribe(events.EventUrgencyEscalated, n.handleUrgencyEscalated)
}

func (n *EscalationService) handleCrisisDetected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CrisisDetectedPayload)
	if !ok {
		return nil
	}
	n.logger.Warn("CrisisDetected",
		zap.String("request_id", payload.RequestID),
		zap.String("session_id", payload.SessionID),
		zap.String("helpline", n.cfg.HelplineName),
		zap.String("helpline_phone", n.cfg.HelplinePhone))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *EscalationService) handleUrgencyEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("UrgencyEscalated", zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *EscalationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
