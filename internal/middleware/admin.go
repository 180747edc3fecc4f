package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// RoleLookup returns the stored role and provider of a user.
type RoleLookup interface {
	Account(ctx context.Context, id string) (identity.Account, error)
}

// AdminRequired lets the request through only when identity.IsAdminEligible
// holds for the caller and the account stored for them.
func AdminRequired(roles RoleLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := identity.FromCtx(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		acct, err := roles.Account(c.UserContext(), id.ExternalID)
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			slog.Error("failed to load role", "user_id", id.ExternalID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}

		if !identity.IsAdminEligible(id, acct) {
			return c.Status(fiber.StatusForbidden).JSON(dto.AdminCheckResponse{
				IsAdmin: false, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
