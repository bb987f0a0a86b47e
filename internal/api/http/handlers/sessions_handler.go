package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/soulace/support-service/internal/api/dto"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/service"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// SessionsHandler manages session endpoints.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessionService}
}

// PostMessage POST /sessions/:id/messages.
func (h *SessionsHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}
	if req.Sender != domain.SenderRequester && req.Sender != domain.SenderWorker {
		return apperrors.NewValidationError("sender must be REQUESTER or WORKER", nil)
	}

	message, err := h.sessions.Append(c.UserContext(), c.Params("id"), req.Sender, req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": messageResponse(*message)})
}

// End POST /sessions/:id/end. Idempotent.
func (h *SessionsHandler) End(c *fiber.Ctx) error {
	var req dto.EndSessionRequest
	_ = c.BodyParser(&req)
	endedBy := req.EndedBy
	if endedBy != domain.PartyRequester && endedBy != domain.PartyWorker {
		endedBy = domain.PartyRequester
	}

	if _, err := h.sessions.End(c.UserContext(), c.Params("id"), endedBy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// Get GET /sessions/:id.
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	session, transcript, err := h.sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	detail := dto.SessionDetailResponse{
		SessionSummary: sessionSummary(*session),
		EndedBy:        session.EndedBy,
		Transcript:     make([]dto.MessageResponse, 0, len(transcript)),
	}
	for _, message := range transcript {
		detail.Transcript = append(detail.Transcript, messageResponse(message))
	}
	return c.JSON(fiber.Map{"data": detail})
}

// List GET /sessions?requester_id=|worker_id=.
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	requesterID := c.Query("requester_id")
	workerID := c.Query("worker_id")

	var (
		sessions []domain.Session
		err      error
	)
	switch {
	case requesterID != "":
		sessions, err = h.sessions.ListByRequester(c.UserContext(), requesterID)
	case workerID != "":
		sessions, err = h.sessions.ListByWorker(c.UserContext(), workerID)
	default:
		return apperrors.NewValidationError("requester_id or worker_id required", nil)
	}
	if err != nil {
		return err
	}

	items := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, sessionSummary(session))
	}
	return c.JSON(fiber.Map{"data": items})
}

func sessionSummary(session domain.Session) dto.SessionSummary {
	return dto.SessionSummary{
		ID:          session.ID,
		RequestID:   session.RequestID,
		RequesterID: session.RequesterID,
		WorkerID:    session.WorkerID,
		Status:      session.Status,
		StartedAt:   session.StartedAt,
		EndedAt:     session.EndedAt,
	}
}

func messageResponse(message domain.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:     message.ID,
		Sender: message.Sender,
		Kind:   message.Kind,
		Body:   message.Body,
		Seq:    message.Seq,
		SentAt: message.SentAt,
	}
}
