package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/observability"
	"github.com/cmscrm/api/internal/repository"
	"github.com/cmscrm/api/internal/storage"
)

var (
	// ErrPageNotFound indicates the page does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrPageURLExists indicates the unique URL constraint was violated.
	ErrPageURLExists = errors.New("page URL already exists")
	// ErrPageHasRoles indicates a delete was blocked by role assignments.
	ErrPageHasRoles = errors.New("cannot delete page with assigned roles")
	// ErrIconTypeNotAllowed indicates the uploaded icon MIME type is not permitted.
	ErrIconTypeNotAllowed = errors.New("invalid file type, only PNG, JPG, JPEG, GIF, and SVG files are allowed")
)

// ChangeNotifier pushes permission-affecting changes to connected clients so
// they can refresh their navigation.
type ChangeNotifier interface {
	PermissionsUpdated(resource string, id uint)
}

const (
	statsCacheKey = "cmscrm:page_stats"
	maxIconBytes  = 5 * 1024 * 1024
)

var allowedIconMimes = map[string]struct{}{
	"image/png":     {},
	"image/jpeg":    {},
	"image/gif":     {},
	"image/svg+xml": {},
}

// PageService exposes page CRUD, access checks, and navigation queries.
type PageService interface {
	List(ctx context.Context, req dto.PageListRequest) (dto.PageListResult, error)
	Get(ctx context.Context, id uint) (dto.PageResponse, error)
	Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.PageCreateRequest, icon *multipart.FileHeader) (dto.PageResponse, error)
	Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.PageUpdateRequest, icon *multipart.FileHeader) (dto.PageResponse, error)
	Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error
	ListByUser(ctx context.Context, userID uint) ([]dto.PageResponse, error)
	ListSimple(ctx context.Context, activeOnly bool) ([]dto.SimplePageResponse, error)
	CheckAccess(ctx context.Context, userID uint, url string) (dto.PageAccessResponse, error)
	Stats(ctx context.Context) (dto.PageStatsResponse, error)
}

type pageService struct {
	repo      repository.PageRepository
	icons     storage.FileStore
	recorder  ActivityRecorder
	notifier  ChangeNotifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     *redis.Client
	cacheTTL  time.Duration
	metrics   *observability.Metrics
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewPageService constructs the page service. cache may be nil, in which case
// statistics are always computed from the database.
func NewPageService(
	repo repository.PageRepository,
	icons storage.FileStore,
	recorder ActivityRecorder,
	notifier ChangeNotifier,
	validate *validator.Validate,
	cache *redis.Client,
	cacheTTL time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) PageService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &pageService{
		repo:      repo,
		icons:     icons,
		recorder:  recorder,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		logger:    logger.With().Str("component", "page_service").Logger(),
		tracer:    otel.Tracer("github.com/cmscrm/api/internal/service/page"),
	}
}

func (s *pageService) List(ctx context.Context, req dto.PageListRequest) (dto.PageListResult, error) {
	page, limit := normalizePaging(req.Page, req.Limit)

	records, total, err := s.repo.List(ctx, repository.PageFilter{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(req.Search),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		return dto.PageListResult{}, err
	}

	items := make([]dto.PageResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewPageResponse(record))
	}

	return dto.PageListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *pageService) Get(ctx context.Context, id uint) (dto.PageResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PageResponse{}, ErrPageNotFound
		}
		return dto.PageResponse{}, err
	}
	return dto.NewPageResponse(record), nil
}

func (s *pageService) Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.PageCreateRequest, icon *multipart.FileHeader) (dto.PageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PageResponse{}, err
	}

	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = models.PageStatusActive
	}

	var iconPath *string
	if icon != nil {
		stored, err := s.storeIcon(ctx, icon)
		if err != nil {
			return dto.PageResponse{}, err
		}
		iconPath = &stored
	}

	page := models.Page{
		Name:       s.sanitizer.Sanitize(strings.TrimSpace(payload.Name)),
		URL:        strings.TrimSpace(payload.URL),
		Icon:       iconPath,
		IsExternal: payload.IsExternal,
		Status:     status,
		CreatedBy:  actor.ID,
	}

	if err := s.repo.Create(ctx, &page); err != nil {
		// The icon landed on disk before the row insert: compensate so a DB
		// failure never leaves an orphaned file behind.
		if iconPath != nil {
			s.removeIcon(ctx, *iconPath)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.PageResponse{}, ErrPageURLExists
		}
		return dto.PageResponse{}, err
	}

	// Re-read so the response reflects DB-derived fields, not the insert input.
	created, err := s.repo.GetByID(ctx, page.ID)
	if err != nil {
		return dto.PageResponse{}, err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionCreate,
		ResourceType: models.ResourcePage,
		ResourceID:   &created.ID,
		Payload: map[string]interface{}{
			"name":        created.Name,
			"url":         created.URL,
			"is_external": created.IsExternal,
		},
		Meta: meta,
	})
	s.notifyPermissions(created.ID)

	return dto.NewPageResponse(created), nil
}

func (s *pageService) Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.PageUpdateRequest, icon *multipart.FileHeader) (dto.PageResponse, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PageResponse{}, ErrPageNotFound
		}
		return dto.PageResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.PageResponse{}, err
	}

	fields := map[string]interface{}{}
	if payload.Name != nil {
		fields["name"] = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Name))
	}
	if payload.URL != nil {
		fields["url"] = strings.TrimSpace(*payload.URL)
	}
	if payload.IsExternal != nil {
		fields["is_external"] = *payload.IsExternal
	}
	if payload.Status != nil {
		fields["status"] = *payload.Status
	}

	var newIcon string
	if icon != nil {
		newIcon, err = s.storeIcon(ctx, icon)
		if err != nil {
			return dto.PageResponse{}, err
		}
		fields["icon"] = newIcon
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		if newIcon != "" {
			s.removeIcon(ctx, newIcon)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.PageResponse{}, ErrPageURLExists
		}
		return dto.PageResponse{}, err
	}

	// Old icon is removed only after the new one is stored and the row updated.
	if newIcon != "" && existing.Icon != nil && *existing.Icon != newIcon {
		s.removeIcon(ctx, *existing.Icon)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.PageResponse{}, err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionUpdate,
		ResourceType: models.ResourcePage,
		ResourceID:   &updated.ID,
		Payload:      patchPayload(fields),
		Meta:         meta,
	})
	s.notifyPermissions(updated.ID)

	return dto.NewPageResponse(updated), nil
}

func (s *pageService) Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPageNotFound
		}
		return err
	}

	assigned, err := s.repo.RoleCount(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return ErrPageHasRoles
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if existing.Icon != nil {
		s.removeIcon(ctx, *existing.Icon)
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionDelete,
		ResourceType: models.ResourcePage,
		ResourceID:   &existing.ID,
		Payload: map[string]interface{}{
			"name": existing.Name,
			"url":  existing.URL,
		},
		Meta: meta,
	})
	s.notifyPermissions(existing.ID)

	return nil
}

func (s *pageService) ListByUser(ctx context.Context, userID uint) ([]dto.PageResponse, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PageResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewPageResponse(record))
	}
	return items, nil
}

func (s *pageService) ListSimple(ctx context.Context, activeOnly bool) ([]dto.SimplePageResponse, error) {
	records, err := s.repo.ListSimple(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	items := make([]dto.SimplePageResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewSimplePageResponse(record))
	}
	return items, nil
}

func (s *pageService) CheckAccess(ctx context.Context, userID uint, url string) (dto.PageAccessResponse, error) {
	granted, err := s.repo.HasAccess(ctx, userID, strings.TrimSpace(url))
	if err != nil {
		return dto.PageAccessResponse{}, err
	}
	return dto.PageAccessResponse{UserID: userID, PageURL: url, HasAccess: granted}, nil
}

// Stats serves advisory counts through a short-lived cache. Cache failures
// degrade to a direct query; entity reads are never cached.
func (s *pageService) Stats(ctx context.Context) (dto.PageStatsResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var stats dto.PageStatsResponse
			if err := json.Unmarshal(cached, &stats); err == nil {
				s.countStatsCache("hit")
				return stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.countStatsCache("error")
			s.logger.Warn().Err(err).Msg("page stats cache read failed")
		}
	}

	raw, err := s.repo.Stats(ctx)
	if err != nil {
		return dto.PageStatsResponse{}, err
	}
	stats := dto.PageStatsResponse{Total: raw.Total, Active: raw.Active, Inactive: raw.Inactive}

	if s.cache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("page stats cache write failed")
			}
		}
		s.countStatsCache("miss")
	}

	return stats, nil
}

// storeIcon validates the upload before anything touches the disk: the MIME
// type is sniffed from content, not trusted from the request header.
func (s *pageService) storeIcon(ctx context.Context, icon *multipart.FileHeader) (string, error) {
	ctx, span := s.tracer.Start(ctx, "page.icon_store")
	defer span.End()

	span.SetAttributes(
		attribute.String("icon.original_name", icon.Filename),
		attribute.Int64("icon.request_size", icon.Size),
	)

	handle, err := icon.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxIconBytes)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return "", err
	}

	detected := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("icon.detected_mime", detected.String()))
	if !isAllowedIconMime(detected.String()) {
		if s.metrics != nil {
			s.metrics.UploadsRejected().WithLabelValues("type").Inc()
		}
		span.RecordError(ErrIconTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return "", ErrIconTypeNotAllowed
	}

	stored, err := s.icons.Store(ctx, icon.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		if s.metrics != nil {
			s.metrics.UploadsRejected().WithLabelValues("storage").Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return "", err
	}

	if s.metrics != nil {
		s.metrics.UploadsStored().Inc()
	}
	span.SetStatus(codes.Ok, "stored")
	return stored, nil
}

func (s *pageService) removeIcon(ctx context.Context, publicPath string) {
	if err := s.icons.Remove(ctx, publicPath); err != nil {
		s.logger.Warn().Err(err).Str("icon", publicPath).Msg("failed to remove icon file")
	}
}

func (s *pageService) notifyPermissions(pageID uint) {
	if s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourcePage, pageID)
	}
}

func (s *pageService) countStatsCache(outcome string) {
	if s.metrics != nil {
		s.metrics.StatsCache().WithLabelValues(outcome).Inc()
	}
}

func isAllowedIconMime(m string) bool {
	// mimetype reports parameters for some types (e.g. "image/svg+xml; charset=utf-8").
	if idx := strings.Index(m, ";"); idx >= 0 {
		m = m[:idx]
	}
	_, ok := allowedIconMimes[strings.ToLower(strings.TrimSpace(m))]
	return ok
}

func patchPayload(fields map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		payload[key] = value
	}
	return payload
}
