package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/observability"
	"github.com/cmscrm/api/internal/repository"
)

// ActivityActor identifies the authenticated user performing a mutation.
type ActivityActor struct {
	ID       uint
	Username string
}

// RequestMeta carries request metadata stored alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor        ActivityActor
	Action       string
	ResourceType string
	ResourceID   *uint
	Payload      map[string]interface{}
	Meta         RequestMeta
}

// ActivityRecorder records audit entries after a mutation has succeeded.
// Record never fails the caller: the audit trail is a side channel, and a
// write failure must not mask the success of the mutation it describes.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// ActivityService exposes the audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResult, error)
}

type activityService struct {
	repo    repository.ActivityLogRepository
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, metrics *observability.Metrics, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:    repo,
		logger:  logger.With().Str("component", "activity_service").Logger(),
		metrics: metrics,
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	action := strings.ToUpper(strings.TrimSpace(entry.Action))
	resource := strings.ToLower(strings.TrimSpace(entry.ResourceType))
	if action == "" || resource == "" {
		s.logger.Warn().Str("action", action).Str("resource", resource).Msg("dropping audit entry with missing action or resource")
		return
	}

	model := models.ActivityLog{
		ActorID:       entry.Actor.ID,
		ActorUsername: entry.Actor.Username,
		Action:        action,
		ResourceType:  resource,
		ResourceID:    entry.ResourceID,
		Payload:       sanitizePayload(entry.Payload),
		IPAddress:     entry.Meta.IP,
		UserAgent:     entry.Meta.UserAgent,
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		if s.metrics != nil {
			s.metrics.ActivityDropped().Inc()
		}
		s.logger.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("failed to persist audit entry")
	}
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResult, error) {
	page, limit := normalizePaging(req.Page, req.Limit)

	filter := repository.ActivityLogFilter{
		Page:         page,
		Limit:        limit,
		Action:       strings.ToUpper(strings.TrimSpace(req.Action)),
		ResourceType: strings.ToLower(strings.TrimSpace(req.ResourceType)),
	}
	if req.ActorID > 0 {
		actorID := req.ActorID
		filter.ActorID = &actorID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResult{}, err
	}

	items := make([]dto.ActivityLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityLogResponse(entry))
	}

	return dto.ActivityListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// sanitizePayload masks credential-like keys before they reach the trail.
func sanitizePayload(payload map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range payload {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizePaging(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return page, limit
}
