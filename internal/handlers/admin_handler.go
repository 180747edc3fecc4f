package handlers

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the back office. Every route sits behind AdminRequired.
type AdminHandler struct {
	incidents *services.IncidentService
}

func NewAdminHandler(incidents *services.IncidentService) *AdminHandler {
	return &AdminHandler{incidents: incidents}
}

func (h *AdminHandler) Check(c *fiber.Ctx) error {
	return c.JSON(dto.AdminCheckResponse{IsAdmin: true, Message: "Usuario es administrador"})
}

func (h *AdminHandler) ListIncidents(c *fiber.Ctx) error {
	list, err := h.incidents.ListAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	out := make([]dto.AdminIncident, len(list))
	for i, inc := range list {
		out[i] = dto.NewAdminIncident(inc)
	}
	return c.JSON(out)
}

// UpdateIncident sets status and resolution and notifies the owner by email.
// A failed email never fails the request.
func (h *AdminHandler) UpdateIncident(c *fiber.Ctx) error {
	id, ok := incidentID(c)
	if !ok {
		return badRequest(c, "Invalid incident id")
	}

	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	incident, err := h.incidents.Resolve(c.UserContext(), id, req.Status, req.Resolution)
	if err != nil {
		return respondError(c, err)
	}

	metrics.StatusUpdates.WithLabelValues("admin", incident.Status).Inc()
	return c.JSON(dto.NewAdminIncident(*incident))
}
