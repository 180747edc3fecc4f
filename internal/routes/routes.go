package routes

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

func Setup(
	app *fiber.App,
	verifier identity.Verifier,
	roles middleware.RoleLookup,
	healthHandler *handlers.HealthHandler,
	userHandler *handlers.UserHandler,
	incidentHandler *handlers.IncidentHandler,
	adminHandler *handlers.AdminHandler,
) {
	// Public
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	auth := middleware.BearerAuth(verifier)

	api.Post("/users", auth, userHandler.Upsert)

	// Fixed-prefix routes first so they are not captured by /:userId.
	incidents := api.Group("/incidents", auth)
	incidents.Get("/dashboard/:userId", incidentHandler.Dashboard)
	incidents.Get("/detail/:id", incidentHandler.Detail)
	incidents.Get("/:id/status", incidentHandler.Status)
	incidents.Patch("/:id/status", incidentHandler.PatchStatus)
	incidents.Get("/:userId", incidentHandler.ListByUser)
	incidents.Post("/", incidentHandler.Create)

	admin := api.Group("/admin", auth, middleware.AdminRequired(roles))
	admin.Get("/check", adminHandler.Check)
	admin.Get("/incidents", adminHandler.ListIncidents)
	admin.Put("/incidents/:id", adminHandler.UpdateIncident)
}
