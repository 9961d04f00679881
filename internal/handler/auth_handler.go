package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// AuthHandler exposes login and profile endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
	dev     bool
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger, dev bool) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
		dev:     dev,
	}
}

// Register wires public auth routes. Me must be mounted behind JWT middleware
// separately by the router.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Login(c.Context(), payload)
	if err != nil {
		if verrs, ok := validationErrors(err); ok {
			return utils.SendValidationError(c, verrs)
		}
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "Invalid username or password")
		case errors.Is(err, service.ErrAccountInactive):
			return utils.SendError(c, fiber.StatusForbidden, "Account is inactive")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Login failed", errorDetail(h.dev, err))
		}
	}

	return utils.SendSuccess(c, "Login successful", result)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	profile, err := h.service.Profile(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "User not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("user_id", userID).Msg("failed to load profile")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve profile", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Profile retrieved successfully", fiber.Map{"user": profile})
}
