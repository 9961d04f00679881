package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
	"github.com/cmscrm/api/internal/utils"
)

// PageHandler exposes page CRUD and navigation endpoints.
type PageHandler struct {
	service service.PageService
	logger  zerolog.Logger
	dev     bool
}

// NewPageHandler constructs a page handler.
func NewPageHandler(service service.PageService, logger zerolog.Logger, dev bool) *PageHandler {
	return &PageHandler{
		service: service,
		logger:  logger.With().Str("component", "page_handler").Logger(),
		dev:     dev,
	}
}

// Register wires page routes. The fixed paths must be registered before the
// ":id" parameter route.
func (h *PageHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/my", h.myPages)
	router.Get("/stats", h.stats)
	router.Get("/simple", h.simple)
	router.Get("/access/:pageUrl", h.checkAccess)
	router.Get("/:id", h.getByID)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *PageHandler) list(c *fiber.Ctx) error {
	req := dto.PageListRequest{
		Page:   parseQueryInt(c, "page", 1),
		Limit:  parseQueryInt(c, "limit", 10),
		Search: c.Query("search"),
		Status: c.Query("status"),
	}

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list pages")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve pages", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Pages retrieved successfully", result)
}

func (h *PageHandler) getByID(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page id")
	}

	page, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "Page not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("page_id", id).Msg("failed to get page")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve page", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Page retrieved successfully", fiber.Map{"page": page})
}

func (h *PageHandler) create(c *fiber.Ctx) error {
	var payload dto.PageCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	page, err := h.service.Create(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), payload, formIcon(c))
	if err != nil {
		return h.renderMutationError(c, err, "Failed to create page")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "Page created successfully", fiber.Map{"page": page})
}

func (h *PageHandler) update(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page id")
	}

	var payload dto.PageUpdateRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	page, err := h.service.Update(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id, payload, formIcon(c))
	if err != nil {
		return h.renderMutationError(c, err, "Failed to update page")
	}

	return utils.SendSuccess(c, "Page updated successfully", fiber.Map{"page": page})
}

func (h *PageHandler) delete(c *fiber.Ctx) error {
	id, err := parseParamID(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page id")
	}

	if err := h.service.Delete(c.Context(), activityActorFromContext(c), requestMetaFromContext(c), id); err != nil {
		switch {
		case errors.Is(err, service.ErrPageNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "Page not found")
		case errors.Is(err, service.ErrPageHasRoles):
			return utils.SendError(c, fiber.StatusBadRequest, "Cannot delete page with assigned roles")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("page_id", id).Msg("failed to delete page")
			return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to delete page", errorDetail(h.dev, err))
		}
	}

	return utils.SendSuccess(c, "Page deleted successfully", nil)
}

func (h *PageHandler) myPages(c *fiber.Ctx) error {
	pages, err := h.service.ListByUser(c.Context(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list user pages")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve user pages", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "User pages retrieved successfully", fiber.Map{"pages": pages})
}

func (h *PageHandler) checkAccess(c *fiber.Ctx) error {
	pageURL, err := decodePageURL(c.Params("pageUrl"))
	if err != nil || pageURL == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page url")
	}

	result, err := h.service.CheckAccess(c.Context(), userIDFromContext(c), pageURL)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("page_url", pageURL).Msg("failed to check page access")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to check page access", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Page access checked successfully", result)
}

func (h *PageHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute page stats")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve page statistics", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Page statistics retrieved successfully", stats)
}

func (h *PageHandler) simple(c *fiber.Ctx) error {
	activeOnly := !strings.EqualFold(c.Query("active_only", "true"), "false")

	pages, err := h.service.ListSimple(c.Context(), activeOnly)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list simple pages")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, "Failed to retrieve pages", errorDetail(h.dev, err))
	}

	return utils.SendSuccess(c, "Pages retrieved successfully", fiber.Map{"pages": pages})
}

func (h *PageHandler) renderMutationError(c *fiber.Ctx, err error, fallback string) error {
	if verrs, ok := validationErrors(err); ok {
		return utils.SendValidationError(c, verrs)
	}

	switch {
	case errors.Is(err, service.ErrPageNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "Page not found")
	case errors.Is(err, service.ErrPageURLExists):
		return utils.SendError(c, fiber.StatusBadRequest, "Page URL already exists")
	case errors.Is(err, service.ErrIconTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "Invalid file type. Only PNG, JPG, JPEG, GIF, and SVG files are allowed.")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("page mutation failed")
		return utils.SendErrorDetail(c, fiber.StatusInternalServerError, fallback, errorDetail(h.dev, err))
	}
}

// formIcon returns the uploaded icon header, or nil when the request carries
// no multipart icon field.
func formIcon(c *fiber.Ctx) *multipart.FileHeader {
	file, err := c.FormFile("icon")
	if err != nil {
		return nil
	}
	return file
}
