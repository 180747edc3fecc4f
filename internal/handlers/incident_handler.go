package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type IncidentHandler struct {
	incidents *services.IncidentService
	roles     middleware.RoleLookup
}

func NewIncidentHandler(incidents *services.IncidentService, roles middleware.RoleLookup) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, roles: roles}
}

// ListByUser returns the caller's incidents. The ownership check runs before
// any lookup so a stranger learns nothing about other users.
func (h *IncidentHandler) ListByUser(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)
	userID := c.Params("userId")
	if !caller.Owns(userID) {
		return forbidden(c, "No autorizado para ver las incidencias de este usuario")
	}

	list, err := h.incidents.ListByUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []models.Incident{}
	}
	return c.JSON(list)
}

func (h *IncidentHandler) Dashboard(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)
	userID := c.Params("userId")
	if !caller.Owns(userID) {
		return forbidden(c, "No autorizado para ver este dashboard")
	}

	ctx := c.UserContext()
	list, err := h.incidents.ListByUser(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	counts, err := h.incidents.CountByStatus(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	byStatus := make(map[string]int64, len(counts))
	for _, sc := range counts {
		byStatus[sc.Status] = sc.Count
	}
	return c.JSON(dto.NewDashboard(list, byStatus))
}

func (h *IncidentHandler) Detail(c *fiber.Ctx) error {
	incident, err := h.ownedIncident(c)
	if err != nil || incident == nil {
		return err
	}
	return c.JSON(incident)
}

func (h *IncidentHandler) Status(c *fiber.Ctx) error {
	incident, err := h.ownedIncident(c)
	if err != nil || incident == nil {
		return err
	}
	return c.JSON(dto.NewIncidentStatus(incident))
}

// ownedIncident loads the :id incident for its owner. A nil incident with a
// nil error means the response has already been written.
func (h *IncidentHandler) ownedIncident(c *fiber.Ctx) (*models.Incident, error) {
	id, ok := incidentID(c)
	if !ok {
		return nil, badRequest(c, "Invalid incident id")
	}

	incident, err := h.incidents.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, respondError(c, err)
	}

	caller, _ := identity.FromCtx(c)
	if !caller.Owns(incident.UserID) {
		return nil, forbidden(c, "No autorizado para ver esta incidencia")
	}
	return incident, nil
}

func (h *IncidentHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	caller, _ := identity.FromCtx(c)
	if req.UserID != "" && !caller.Owns(req.UserID) {
		return forbidden(c, "No autorizado para crear incidencias para este usuario")
	}

	incident, err := h.incidents.Create(c.UserContext(), services.CreateIncidentInput{
		UserID:        req.UserID,
		Type:          req.Type,
		Description:   req.Description,
		ApplianceType: req.ApplianceType,
		Photos:        req.Photos,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.CreateIncidentResponse{
		Message:  "Incidencia creada correctamente",
		Incident: incident,
	})
}

// PatchStatus lets the owner or an administrator change status and feedback.
func (h *IncidentHandler) PatchStatus(c *fiber.Ctx) error {
	id, ok := incidentID(c)
	if !ok {
		return badRequest(c, "Invalid incident id")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx := c.UserContext()
	incident, err := h.incidents.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	caller, _ := identity.FromCtx(c)
	source := "owner"
	if !caller.Owns(incident.UserID) {
		acct, err := h.roles.Account(ctx, caller.ExternalID)
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			return respondError(c, err)
		}
		if !identity.IsAdminEligible(caller, acct) {
			return forbidden(c, "No autorizado para modificar esta incidencia")
		}
		source = "admin"
	}

	updated, err := h.incidents.UpdateStatus(ctx, id, services.StatusUpdate{
		Status:   req.Status,
		Feedback: req.Feedback,
	})
	if err != nil {
		return respondError(c, err)
	}

	if req.Status != nil {
		metrics.StatusUpdates.WithLabelValues(source, updated.Status).Inc()
	}
	return c.JSON(updated)
}

func incidentID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}
