package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/photos"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// respondError maps service errors onto HTTP statuses. Anything unknown is a
// 500 with a generic message; the detail goes to the log and Sentry only.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	var oversize *photos.OversizeError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Faltan campos requeridos", Details: verr.Fields,
		})
	case errors.As(err, &oversize):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Algunas fotos exceden el tamaño máximo permitido (5MB)",
			Details: fiber.Map{"oversized": oversize.Count},
		})
	case errors.Is(err, photos.ErrInvalidPhotos),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidProvider):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrIncidentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Incidencia no encontrada",
		})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Usuario no encontrado",
		})
	case errors.Is(err, services.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	slog.Error("request failed", "route", c.Route().Path, "request_id", requestID(c), "error", err)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return utils.CopyString(id)
	}
	return ""
}

// ErrorHandler is the fiber-level fallback for errors returned by handlers
// and middleware, including body-limit rejections.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
		message = ferr.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", utils.CopyString(c.Method()),
			"route", utils.CopyString(c.Path()),
			"request_id", requestID(c),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
