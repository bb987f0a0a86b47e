package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soulace/support-service/internal/api/dto"
	"github.com/soulace/support-service/internal/service"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// RequestsHandler manages submission, polling and cancellation endpoints.
type RequestsHandler struct {
	support *service.SupportService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(supportService *service.SupportService) *RequestsHandler {
	return &RequestsHandler{support: supportService}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	status, err := h.support.Submit(c.UserContext(), service.SubmitInput{
		RequesterID:    req.RequesterID,
		Concerns:       req.Concerns,
		Language:       req.Language,
		Urgency:        req.Urgency,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": requestStatusResponse(status)})
}

// Status GET /requests/:id.
func (h *RequestsHandler) Status(c *fiber.Ctx) error {
	status, err := h.support.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestStatusResponse(status)})
}

// Cancel DELETE /requests/:id.
func (h *RequestsHandler) Cancel(c *fiber.Ctx) error {
	if err := h.support.Cancel(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// PostQueuedMessage POST /requests/:id/messages.
func (h *RequestsHandler) PostQueuedMessage(c *fiber.Ctx) error {
	var req dto.QueuedMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := h.support.AppendToQueued(c.UserContext(), c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": requestStatusResponse(status)})
}

// Queue GET /queue.
func (h *RequestsHandler) Queue(c *fiber.Ctx) error {
	entries := h.support.QueueSnapshot()
	items := make([]dto.QueueEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.QueueEntryResponse{
			RequestID:   entry.RequestID,
			RequesterID: entry.RequesterID,
			Urgency:     entry.Urgency,
			SubmittedAt: entry.SubmittedAt,
			Position:    entry.Position,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func requestStatusResponse(status *service.RequestStatus) dto.RequestStatusResponse {
	return dto.RequestStatusResponse{
		RequestID:            status.RequestID,
		Status:               string(status.State),
		QueuePosition:        status.QueuePosition,
		EstimatedWaitSeconds: int(status.EstimatedWait.Seconds()),
		SessionID:            status.SessionID,
		Urgency:              status.Urgency,
		CrisisFlagged:        status.CrisisFlagged,
	}
}
