// Package auth provides authentication handlers for Fiber.
package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/pdvd-auth/model"
)

// ============================================================================
// AUTH HANDLERS
// ============================================================================

// Login handles user login and returns a bearer token
func Login(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.Credentials
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if req.Username == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password are required"})
		}

		user, err := getUserByUsername(db, req.Username)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}

		if !user.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Account is inactive"})
		}

		if !CheckPasswordHash(req.Password, user.PasswordHash) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}

		token, err := GenerateJWT(user.Username, user.Role, user.Orgs)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
		}

		SetAuthCookie(c, token)

		return c.JSON(model.Session{
			AccessToken: token,
			TokenType:   "bearer",
			Username:    user.Username,
		})
	}
}

// Logout revokes the presented token and clears the auth cookie
func Logout(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenID, ok := c.Locals(localTokenID).(string); ok && tokenID != "" {
			expiresAt, _ := c.Locals(localTokenExpiry).(time.Time)
			if expiresAt.IsZero() {
				expiresAt = time.Now().Add(tokenTTL)
			}
			revokeToken(db, tokenID, expiresAt)
		}

		c.Cookie(&fiber.Cookie{
			Name:     "auth_token",
			Value:    "",
			Expires:  time.Now().Add(-1 * time.Hour),
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   false,
			SameSite: "Lax",
			Path:     "/",
		})
		return c.JSON(model.MessageResponse{Message: "Logged out successfully"})
	}
}

// Me returns current authenticated user info
func Me(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, ok := c.Locals(localUsername).(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		}

		user, err := getUserByUsername(db, username)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		}

		return c.JSON(user.User)
	}
}

// ChangePassword handles password change
func ChangePassword(db *UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, ok := c.Locals(localUsername).(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
		}

		var req model.PasswordChange
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if msg := validatePasswordChange(req); msg != "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": msg})
		}

		user, err := getUserByUsername(db, username)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get user"})
		}

		if !CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid current password"})
		}

		newHash, err := HashPassword(req.NewPassword)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
		}

		user.PasswordHash = newHash
		user.UpdatedAt = time.Now()

		if err := updateUser(db, user); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update password"})
		}

		return c.JSON(model.MessageResponse{Message: "Password changed successfully"})
	}
}

// validatePasswordChange returns the first validation failure, or "" when the request is acceptable
func validatePasswordChange(req model.PasswordChange) string {
	switch {
	case req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "":
		return "current_password, new_password and confirm_password are required"
	case req.NewPassword != req.ConfirmPassword:
		return "Passwords do not match"
	case req.NewPassword == req.CurrentPassword:
		return "New password must differ from the current password"
	}
	if err := ValidatePasswordStrength(req.NewPassword); err != nil {
		return err.Error()
	}
	return ""
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// SetAuthCookie sets the authentication cookie for a browser session.
func SetAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "auth_token",
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   int(tokenTTL.Seconds()),
		Path:     "/",
	})
}
