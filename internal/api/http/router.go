package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/market-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Posts        *handlers.PostsHandler
	Appointments *handlers.AppointmentsHandler
	AI           *handlers.AIHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Get("/users", cfg.Posts.ListUsers)

	api.Get("/posts", cfg.Posts.ListPosts)
	api.Post("/posts", cfg.Posts.CreatePost)
	api.Get("/posts/:id", cfg.Posts.GetPost)
	api.Delete("/posts/:id", cfg.Posts.DeletePost)

	api.Get("/posts/:id/appointment", cfg.Appointments.GetAppointment)
	api.Post("/posts/:id/appointment", cfg.Appointments.Schedule)
	api.Post("/posts/:id/appointment/cancel-request", cfg.Appointments.RequestCancel)
	api.Post("/posts/:id/appointment/cancel-confirm", cfg.Appointments.ConfirmCancel)

	api.Post("/ai/generate-post", cfg.AI.GeneratePost)
}
