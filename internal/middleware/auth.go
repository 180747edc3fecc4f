package middleware

import (
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const bearerPrefix = "Bearer "

// BearerAuth verifies the Authorization header on every request and attaches
// the resulting identity. Nothing is cached between requests.
func BearerAuth(verifier identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized: no token provided",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized: no token provided",
			})
		}

		id, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			slog.Warn("token rejected", "route", utils.CopyString(c.Path()), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized: invalid or expired token",
			})
		}

		identity.Attach(c, id)
		return c.Next()
	}
}
