package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	serviceName string
	environment string
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(serviceName, environment string) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, environment: environment}
}

// Register wires the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.check)
}

func (h *HealthHandler) check(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"service":     h.serviceName,
		"environment": h.environment,
	})
}
