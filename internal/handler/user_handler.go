package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// UserHandler exposes user administration endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
	dev     bool
}

// NewUserHandler constructs a user handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger, dev bool) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
		dev:     dev,
	}
}

// Register wires user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.getByID)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	req := dto.UserListRequest{
		Page:   parseQueryInt(c, "page", 1),
		Limit:  parseQueryInt(c, "limit", 10),
		Search: c.Query("search"),
		Status: c.Query("status"),
	}

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve users", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Users retrieved successfully", result)
}

func (h *UserHandler) getByID(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	user, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "User not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("target_user_id", id).Msg("failed to get user")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve user", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "User retrieved successfully", fiber.Map{"user": user})
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Create(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), payload)
	if err != nil {
		return h.renderMutationError(c, err, "Failed to create user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "User created successfully", fiber.Map{"user": user})
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Update(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id, payload)
	if err != nil {
		return h.renderMutationError(c, err, "Failed to update user")
	}

	return utils.SendSuccess(c, "User updated successfully", fiber.Map{"user": user})
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.service.Delete(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrSelfDelete):
			return utils.SendError(c, fiber.StatusBadRequest, "Cannot delete your own account")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("target_user_id", id).Msg("failed to delete user")
			return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to delete user", errorDetail(h.dev, err))
		}
	}

	return utils.SendSuccess(c, "User deleted successfully", nil)
}

func (h *UserHandler) renderMutationError(c *fiber.Ctx, err error, fallback string) error {
	if verrs, ok := validationErrors(err); ok {
		return utils.SendValidationError(c, verrs)
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrUserExists):
		return utils.SendError(c, fiber.StatusBadRequest, "Username or email already exists")
	case errors.Is(err, service.ErrRoleNotFound):
		return utils.SendError(c, fiber.StatusBadRequest, "One or more roles do not exist")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("user mutation failed")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, fallback, errorDetail(h.dev, err))
	}
}
