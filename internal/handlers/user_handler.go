package handlers

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Upsert creates or refreshes the caller's own profile.
func (h *UserHandler) Upsert(c *fiber.Ctx) error {
	caller, _ := identity.FromCtx(c)

	var req dto.UpsertUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.ID != "" && !caller.Owns(req.ID) {
		return forbidden(c, "No autorizado para crear/actualizar este usuario")
	}
	if req.Provider == "" {
		req.Provider = caller.Provider
	}
	if req.Provider != caller.Provider {
		return forbidden(c, "El proveedor no coincide con la sesión verificada")
	}

	user, created, err := h.users.Upsert(c.UserContext(), services.UpsertUserInput{
		ID:       req.ID,
		Email:    req.Email,
		Provider: req.Provider,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		return respondError(c, err)
	}

	if created {
		return c.Status(fiber.StatusCreated).JSON(dto.UserResponse{
			Message: "Usuario creado correctamente", User: user,
		})
	}
	return c.JSON(dto.UserResponse{Message: "Usuario actualizado correctamente", User: user})
}
