package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// ActivityHandler exposes the audit-trail listing endpoint.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
	dev     bool
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger, dev bool) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
		dev:     dev,
	}
}

// Register wires activity-log routes.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	req := dto.ActivityListRequest{
		Page:         parseQueryInt(c, "page", 1),
		Limit:        parseQueryInt(c, "limit", 10),
		ActorID:      uint(parseQueryInt(c, "actor_id", 0)),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
	}

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity logs")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve activity logs", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Activity logs retrieved successfully", result)
}
