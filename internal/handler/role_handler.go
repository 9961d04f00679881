package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// RoleHandler exposes role administration endpoints.
type RoleHandler struct {
	service service.RoleService
	logger  zerolog.Logger
	dev     bool
}

// NewRoleHandler constructs a role handler.
func NewRoleHandler(service service.RoleService, logger zerolog.Logger, dev bool) *RoleHandler {
	return &RoleHandler{
		service: service,
		logger:  logger.With().Str("component", "role_handler").Logger(),
		dev:     dev,
	}
}

// Register wires role routes.
func (h *RoleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.getByID)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *RoleHandler) list(c *fiber.Ctx) error {
	req := dto.RoleListRequest{
		Page:   parseQueryInt(c, "page", 1),
		Limit:  parseQueryInt(c, "limit", 10),
		Search: c.Query("search"),
	}

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list roles")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve roles", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Roles retrieved successfully", result)
}

func (h *RoleHandler) getByID(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role id")
	}

	role, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRoleNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "Role not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("role_id", id).Msg("failed to get role")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve role", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Role retrieved successfully", fiber.Map{"role": role})
}

func (h *RoleHandler) create(c *fiber.Ctx) error {
	var payload dto.RoleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	role, err := h.service.Create(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), payload)
	if err != nil {
		return h.renderMutationError(c, err, "Failed to create role")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Role created successfully", fiber.Map{"role": role})
}

func (h *RoleHandler) update(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role id")
	}

	var payload dto.RoleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	role, err := h.service.Update(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id, payload)
	if err != nil {
		return h.renderMutationError(c, err, "Failed to update role")
	}

	return utils.SendSuccess(c, "Role updated successfully", fiber.Map{"role": role})
}

func (h *RoleHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role id")
	}

	if err := h.service.Delete(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id); err != nil {
		switch {
		case errors.Is(err, service.ErrRoleNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Role not found")
		case errors.Is(err, service.ErrRoleHasUsers):
			return utils.SendError(c, fiber.StatusBadRequest, "Cannot delete role with assigned users")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("role_id", id).Msg("failed to delete role")
			return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to delete role", errorDetail(h.dev, err))
		}
	}

	return utils.SendSuccess(c, "Role deleted successfully", nil)
}

func (h *RoleHandler) renderMutationError(c *fiber.Ctx, err error, fallback string) error {
	if verrs, ok := validationErrors(err); ok {
		return utils.SendValidationError(c, verrs)
	}

	switch {
	case errors.Is(err, service.ErrRoleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Role not found")
	case errors.Is(err, service.ErrRoleNameExists):
		return utils.SendError(c, fiber.StatusBadRequest, "Role name already exists")
	case errors.Is(err, service.ErrPageNotFound):
		return utils.SendError(c, fiber.StatusBadRequest, "One or more pages do not exist")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("role mutation failed")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, fallback, errorDetail(h.dev, err))
	}
}
