// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ortelius/pdvd-auth/restapi/modules/auth"
	"go.uber.org/zap"
)

// APIPrefix is where the auth routes are mounted; clients use it as their base URL path
const APIPrefix = "/api/v1"

// SetupRoutes configures the auth REST API routes.
func SetupRoutes(app *fiber.App, db *auth.UserStore, logger *zap.Logger) {
	// API Group /api/v1
	api := app.Group(APIPrefix)

	// Auth Routes
	authGroup := api.Group("/auth")
	authGroup.Post("/login", auth.Login(db))
	authGroup.Post("/logout", auth.OptionalAuth(db), auth.Logout(db))
	authGroup.Get("/me", auth.RequireAuth(db), auth.Me(db))
	authGroup.Post("/change-password", auth.RequireAuth(db), auth.ChangePassword(db))

	logger.Sugar().Infof("API routes initialized under %s", APIPrefix)
}
