package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/middleware"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// MenuHandler serves the navigation structure for the authenticated user.
type MenuHandler struct {
	service service.MenuService
	logger  zerolog.Logger
	dev     bool
}

// NewMenuHandler constructs a menu handler.
func NewMenuHandler(service service.MenuService, logger zerolog.Logger, dev bool) *MenuHandler {
	return &MenuHandler{
		service: service,
		logger:  logger.With().Str("component", "menu_handler").Logger(),
		dev:     dev,
	}
}

// Register wires menu routes.
func (h *MenuHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *MenuHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	menu, err := h.service.Build(c.Context(), userID, middleware.RolesFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Uint("user_id", userID).Msg("failed to build menu")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve menu", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Menu retrieved successfully", menu)
}
