// Package api assembles the reference auth server.
package api

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ortelius/pdvd-auth/restapi"
	"github.com/ortelius/pdvd-auth/restapi/modules/auth"
	"go.uber.org/zap"
)

// NewFiberApp creates and configures a Fiber app serving the auth routes.
// Access logs are written to accessLog; pass io.Discard to silence them.
func NewFiberApp(db *auth.UserStore, accessLog io.Writer, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "pdvd-auth reference server",
		BodyLimit:             1 * 1024 * 1024, // 1MB
		ReadTimeout:           30 * time.Second,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000,http://localhost:4000,http://127.0.0.1:3000,http://127.0.0.1:4000",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		AllowMethods:     "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency} ${reqHeader:X-Request-ID}\n",
		Output: accessLog,
	}))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	restapi.SetupRoutes(app, db, log)

	return app
}
