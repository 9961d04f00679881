package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/repository"
)

var (
	// ErrRoleNameExists indicates the unique role name constraint was violated.
	ErrRoleNameExists = errors.New("role name already exists")
	// ErrRoleHasUsers indicates a delete was blocked by user memberships.
	ErrRoleHasUsers = errors.New("cannot delete role with assigned users")
)

// RoleService exposes role CRUD and page assignment.
type RoleService interface {
	List(ctx context.Context, req dto.RoleListRequest) (dto.RoleListResult, error)
	Get(ctx context.Context, id uint) (dto.RoleResponse, error)
	Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.RoleCreateRequest) (dto.RoleResponse, error)
	Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.RoleUpdateRequest) (dto.RoleResponse, error)
	Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error
}

type roleService struct {
	roles     repository.RoleRepository
	pages     repository.PageRepository
	recorder  ActivityRecorder
	notifier  ChangeNotifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewRoleService constructs the role service.
func NewRoleService(
	roles repository.RoleRepository,
	pages repository.PageRepository,
	recorder ActivityRecorder,
	notifier ChangeNotifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) RoleService {
	return &roleService{
		roles:     roles,
		pages:     pages,
		recorder:  recorder,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "role_service").Logger(),
	}
}

func (s *roleService) List(ctx context.Context, req dto.RoleListRequest) (dto.RoleListResult, error) {
	page, limit := normalizePaging(req.Page, req.Limit)

	records, total, err := s.roles.List(ctx, repository.RoleFilter{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(req.Search),
	})
	if err != nil {
		return dto.RoleListResult{}, err
	}

	items := make([]dto.RoleResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewRoleResponse(record))
	}

	return dto.RoleListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *roleService) Get(ctx context.Context, id uint) (dto.RoleResponse, error) {
	record, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoleResponse{}, ErrRoleNotFound
		}
		return dto.RoleResponse{}, err
	}
	return dto.NewRoleResponse(record), nil
}

func (s *roleService) Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.RoleCreateRequest) (dto.RoleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoleResponse{}, err
	}

	pages, err := s.resolvePages(ctx, payload.PageIDs)
	if err != nil {
		return dto.RoleResponse{}, err
	}

	role := models.Role{
		Name:        s.sanitizer.Sanitize(strings.TrimSpace(payload.Name)),
		Description: s.sanitizer.Sanitize(strings.TrimSpace(payload.Description)),
		Permissions: datatypes.JSONMap(payload.Permissions),
		Pages:       pages,
	}

	if err := s.roles.Create(ctx, &role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.RoleResponse{}, ErrRoleNameExists
		}
		return dto.RoleResponse{}, err
	}

	created, err := s.roles.GetByID(ctx, role.ID)
	if err != nil {
		return dto.RoleResponse{}, err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionCreate,
		ResourceType: models.ResourceRole,
		ResourceID:   &created.ID,
		Payload: map[string]interface{}{
			"name":     created.Name,
			"page_ids": payload.PageIDs,
		},
		Meta: meta,
	})
	if s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourceRole, created.ID)
	}

	return dto.NewRoleResponse(created), nil
}

func (s *roleService) Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.RoleUpdateRequest) (dto.RoleResponse, error) {
	existing, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoleResponse{}, ErrRoleNotFound
		}
		return dto.RoleResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.RoleResponse{}, err
	}

	fields := map[string]interface{}{}
	if payload.Name != nil {
		fields["name"] = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Name))
	}
	if payload.Description != nil {
		fields["description"] = s.sanitizer.Sanitize(strings.TrimSpace(*payload.Description))
	}
	if payload.Permissions != nil {
		fields["permissions"] = datatypes.JSONMap(*payload.Permissions)
	}

	if err := s.roles.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.RoleResponse{}, ErrRoleNameExists
		}
		return dto.RoleResponse{}, err
	}

	pagesReplaced := false
	if payload.PageIDs != nil {
		pages, err := s.resolvePages(ctx, *payload.PageIDs)
		if err != nil {
			return dto.RoleResponse{}, err
		}
		if err := s.roles.ReplacePages(ctx, &existing, pages); err != nil {
			return dto.RoleResponse{}, err
		}
		pagesReplaced = true
	}

	updated, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return dto.RoleResponse{}, err
	}

	payloadMap := patchPayload(fields)
	if payload.PageIDs != nil {
		payloadMap["page_ids"] = *payload.PageIDs
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionUpdate,
		ResourceType: models.ResourceRole,
		ResourceID:   &updated.ID,
		Payload:      payloadMap,
		Meta:         meta,
	})
	if pagesReplaced && s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourceRole, updated.ID)
	}

	return dto.NewRoleResponse(updated), nil
}

func (s *roleService) Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error {
	existing, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	members, err := s.roles.UserCount(ctx, id)
	if err != nil {
		return err
	}
	if members > 0 {
		return ErrRoleHasUsers
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionDelete,
		ResourceType: models.ResourceRole,
		ResourceID:   &existing.ID,
		Payload: map[string]interface{}{
			"name": existing.Name,
		},
		Meta: meta,
	})
	if s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourceRole, existing.ID)
	}

	return nil
}

func (s *roleService) resolvePages(ctx context.Context, ids []uint) ([]models.Page, error) {
	if len(ids) == 0 {
		return []models.Page{}, nil
	}
	pages, err := s.pages.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(pages) != len(dedupeIDs(ids)) {
		return nil, ErrPageNotFound
	}
	return pages, nil
}
