package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soulace/support-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Metrics  *handlers.MetricsHandler
	Requests *handlers.RequestsHandler
	Sessions *handlers.SessionsHandler
	Workers  *handlers.WorkersHandler
	Stream   *handlers.StreamHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	app.Post("/requests", cfg.Requests.Submit)
	app.Get("/requests/:id", cfg.Requests.Status)
	app.Delete("/requests/:id", cfg.Requests.Cancel)
	app.Post("/requests/:id/messages", cfg.Requests.PostQueuedMessage)
	app.Get("/queue", cfg.Requests.Queue)

	app.Post("/workers", cfg.Workers.Register)
	app.Get("/workers", cfg.Workers.List)
	app.Get("/workers/:id", cfg.Workers.Get)
	app.Put("/workers/:id/status", cfg.Workers.SetStatus)

	app.Get("/sessions", cfg.Sessions.List)
	app.Get("/sessions/:id", cfg.Sessions.Get)
	app.Post("/sessions/:id/messages", cfg.Sessions.PostMessage)
	app.Post("/sessions/:id/end", cfg.Sessions.End)
	app.Get("/sessions/:id/stream", cfg.Stream.Upgrade, cfg.Stream.Stream())
}
