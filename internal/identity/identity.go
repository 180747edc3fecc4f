// Package identity resolves bearer tokens to callers and answers the two
// authorization questions the API asks: does the caller own this resource, and
// may the caller act as an administrator.
package identity

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

const localsKey = "identity"

// Identity is the verified caller of a request.
type Identity struct {
	ExternalID string `json:"uid"`
	Email      string `json:"email"`
	Provider   string `json:"provider"`
}

// Owns reports whether the caller is the user identified by userID.
func (id *Identity) Owns(userID string) bool {
	return id != nil && id.ExternalID != "" && id.ExternalID == userID
}

// Account is what the user table stores about a caller's access.
type Account struct {
	Role     string
	Provider string
}

// IsAdminEligible is the single admin rule: the stored role must be admin, the
// stored account must be an email account, and the caller must not have
// signed in with Google, whatever the stored role says.
func IsAdminEligible(id *Identity, acct Account) bool {
	if id == nil || id.Provider == models.ProviderGoogle {
		return false
	}
	return acct.Role == models.RoleAdmin && acct.Provider == models.ProviderEmail
}

// Attach stores the verified identity on the request.
func Attach(c *fiber.Ctx, id *Identity) {
	c.Locals(localsKey, id)
}

// FromCtx returns the identity attached by the auth middleware.
func FromCtx(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(localsKey).(*Identity)
	return id, ok && id != nil
}

func providerFromSignIn(signInProvider string) string {
	if signInProvider == "google.com" {
		return models.ProviderGoogle
	}
	return models.ProviderEmail
}
