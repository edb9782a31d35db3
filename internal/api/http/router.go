package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-service/internal/auth"
	"github.com/spec-kit/civic-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Auth           *handlers.AuthHandler
	Queue          *handlers.QueueHandler
	Reports        *handlers.ReportsHandler
	External       *handlers.ExternalHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Prometheus)
	app.Get("/metrics/snapshot", cfg.Metrics.Snapshot)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware, cfg.Auth.Me)

	// Ticket kiosks are unauthenticated; serving a customer needs a counter officer.
	queue := app.Group("/queue")
	queue.Post("/tickets", cfg.Queue.CreateTicket)
	queue.Get("/status", cfg.Queue.Status)
	queue.Post("/next", cfg.AuthMiddleware, auth.RequireRole(domain.RoleQueueOfficer), cfg.Queue.NextCustomer)

	reports := app.Group("/reports", cfg.AuthMiddleware)
	reports.Post("/", auth.RequireRole(domain.RoleCitizen), cfg.Reports.Submit)
	reports.Get("/", cfg.Reports.List)
	reports.Get("/:id", cfg.Reports.Get)
	reports.Get("/:id/history", auth.RequireRole(domain.RolePublicRelationsOfficer, domain.RoleTechnicalOfficer), cfg.Reports.History)
	reports.Post("/:id/review", auth.RequireRole(domain.RolePublicRelationsOfficer), cfg.Reports.Review)

	technical := auth.RequireRole(domain.RoleTechnicalOfficer)
	reports.Post("/:id/external-assignment", technical, cfg.Reports.AssignExternal)
	reports.Post("/:id/start", technical, cfg.Reports.Start)
	reports.Post("/:id/suspend", technical, cfg.Reports.Suspend)
	reports.Post("/:id/resume", technical, cfg.Reports.Resume)
	reports.Post("/:id/finish", technical, cfg.Reports.Finish)

	external := app.Group("/external/reports", cfg.AuthMiddleware, auth.RequireRole(domain.RoleExternalMaintainer))
	external.Get("/", cfg.External.ListAssigned)
	external.Post("/:id/start", cfg.External.Start)
	external.Post("/:id/suspend", cfg.External.Suspend)
	external.Post("/:id/resume", cfg.External.Resume)
	external.Post("/:id/finish", cfg.External.Finish)
	external.Patch("/:id/status", cfg.External.ChangeStatus)
}
