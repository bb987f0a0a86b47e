package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soulace/support-service/internal/api/dto"
	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/service"
	apperrors "github.com/soulace/support-service/pkg/util/errorutil"
)

// WorkersHandler manages the worker directory endpoints.
type WorkersHandler struct {
	workers *service.WorkerService
}

// NewWorkersHandler constructs handler.
func NewWorkersHandler(workerService *service.WorkerService) *WorkersHandler {
	return &WorkersHandler{workers: workerService}
}

// Register POST /workers.
func (h *WorkersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterWorkerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	worker, err := h.workers.Register(c.UserContext(), service.WorkerInput{
		Name:        req.Name,
		Specialties: req.Specialties,
		Languages:   req.Languages,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": workerResponse(*worker)})
}

// SetStatus PUT /workers/:id/status.
func (h *WorkersHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.SetWorkerStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.workers.SetStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// List GET /workers.
func (h *WorkersHandler) List(c *fiber.Ctx) error {
	workers := h.workers.List()
	items := make([]dto.WorkerResponse, 0, len(workers))
	for _, worker := range workers {
		items = append(items, workerResponse(worker))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /workers/:id.
func (h *WorkersHandler) Get(c *fiber.Ctx) error {
	worker, err := h.workers.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workerResponse(*worker)})
}

func workerResponse(worker domain.Worker) dto.WorkerResponse {
	return dto.WorkerResponse{
		ID:           worker.ID,
		Name:         worker.Name,
		Specialties:  worker.Capabilities.Specialties,
		Languages:    worker.Capabilities.Languages,
		Status:       worker.Status,
		RegisteredAt: worker.RegisteredAt,
	}
}
