package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/soulace/support-service/internal/domain"
	"github.com/soulace/support-service/internal/service"
	"github.com/soulace/support-service/internal/stream"
)

// StreamHandler delivers live transcript updates over websocket.
type StreamHandler struct {
	hub      *stream.Hub
	sessions *service.SessionService
}

// NewStreamHandler constructs handler.
func NewStreamHandler(hub *stream.Hub, sessionService *service.SessionService) *StreamHandler {
	return &StreamHandler{hub: hub, sessions: sessionService}
}

// Upgrade gates the route to websocket upgrade requests.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream GET /sessions/:id/stream. Replays nothing; clients fetch the
// transcript first and then follow live updates. The connection closes
// when the session ends.
func (h *StreamHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()
		sessionID := conn.Params("id")

		session, _, err := h.sessions.Get(context.Background(), sessionID)
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": "session not found"})
			return
		}
		if session.Status == domain.SessionStatusEnded {
			_ = conn.WriteJSON(fiber.Map{"error": "session ended"})
			return
		}

		updates, cancel := h.hub.Subscribe(sessionID)
		defer cancel()

		for update := range updates {
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	})
}
