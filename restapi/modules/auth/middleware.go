package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// tokenFromRequest reads a bearer token from the Authorization header,
// falling back to the auth_token cookie used by browser sessions.
func tokenFromRequest(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Cookies("auth_token")
}

// authenticate validates the request token and stores the identity in Locals
func authenticate(c *fiber.Ctx, db *UserStore) bool {
	token := tokenFromRequest(c)
	if token == "" {
		return false
	}

	claims, err := ValidateJWT(token)
	if err != nil || isRevoked(db, claims.ID) {
		return false
	}

	c.Locals(localAuthenticated, true)
	c.Locals(localUsername, claims.Subject)
	c.Locals(localRole, claims.Role)
	c.Locals(localTokenID, claims.ID)
	if claims.ExpiresAt != nil {
		c.Locals(localTokenExpiry, claims.ExpiresAt.Time)
	}
	return true
}

// RequireAuth middleware validates the bearer token and blocks guests
func RequireAuth(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenFromRequest(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if !authenticate(c, db) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
			})
		}

		return c.Next()
	}
}

// OptionalAuth identifies the user if a token is present but does not block guests.
func OptionalAuth(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !authenticate(c, db) {
			// Treat missing, invalid and expired tokens as guest access
			c.Locals(localAuthenticated, false)
		}
		return c.Next()
	}
}
