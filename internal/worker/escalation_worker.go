package worker

import (
	"github.com/soulace/support-service/internal/service"
)

// StartEscalationWorker registers the escalation and simulated-responder
// handlers on the event dispatcher.
func StartEscalationWorker(escalationService *service.EscalationService, responderService *service.ResponderService) {
	if escalationService != nil {
		escalationService.RegisterHandlers()
	}
	if responderService != nil {
		responderService.RegisterHandlers()
	}
}
