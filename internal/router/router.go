package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cmscrm/api/internal/config"
	"github.com/cmscrm/api/internal/events"
	"github.com/cmscrm/api/internal/handler"
	"github.com/cmscrm/api/internal/middleware"
	"github.com/cmscrm/api/internal/observability"
	"github.com/cmscrm/api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	PageHandler     *handler.PageHandler
	UserHandler     *handler.UserHandler
	RoleHandler     *handler.RoleHandler
	ActivityHandler *handler.ActivityHandler
	MenuHandler     *handler.MenuHandler
	HealthHandler   *handler.HealthHandler
	Metrics         *observability.Metrics
	Hub             *events.Hub
	JWTMiddleware   fiber.Handler
}

// adminOnly guards routes reserved for administrative roles.
var adminOnly = middleware.RequireRole("Super Admin", "Admin")

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "CMS CRM API", fiber.Map{
			"service":   cfg.AppName,
			"version":   "1.0.0",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.HealthHandler != nil {
		deps.HealthHandler.Register(app)
	}

	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	app.Static("/uploads/icons", cfg.UploadDir)

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth)
		auth.Get("/me", jwtMiddleware, deps.AuthHandler.Me)
	}

	if deps.PageHandler != nil {
		pages := api.Group("/pages", jwtMiddleware)
		deps.PageHandler.Register(pages)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware, adminOnly)
		deps.UserHandler.Register(users)
	}

	if deps.RoleHandler != nil {
		roles := api.Group("/roles", jwtMiddleware, adminOnly)
		deps.RoleHandler.Register(roles)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity-logs", jwtMiddleware, adminOnly)
		deps.ActivityHandler.Register(activity)
	}

	if deps.MenuHandler != nil {
		menu := api.Group("/menu", jwtMiddleware)
		deps.MenuHandler.Register(menu)
	}

	if deps.Hub != nil {
		app.Use("/api/events", events.Upgrade)
		app.Get("/api/events", deps.Hub.Handler())
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
			"path":    c.Path(),
		})
	})
}
