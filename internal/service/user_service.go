package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/repository"
)

var (
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates the username or email is already taken.
	ErrUserExists = errors.New("username or email already exists")
	// ErrSelfDelete indicates an actor attempted to delete their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
	// ErrRoleNotFound indicates a referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
)

// UserService exposes user CRUD and role assignment.
type UserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResult, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error
}

type userService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	recorder  ActivityRecorder
	notifier  ChangeNotifier
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	recorder ActivityRecorder,
	notifier ChangeNotifier,
	validate *validator.Validate,
	logger zerolog.Logger,
) UserService {
	return &userService{
		users:     users,
		roles:     roles,
		recorder:  recorder,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResult, error) {
	page, limit := normalizePaging(req.Page, req.Limit)

	records, total, err := s.users.List(ctx, repository.UserFilter{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(req.Search),
		Status: strings.TrimSpace(req.Status),
	})
	if err != nil {
		return dto.UserListResult{}, err
	}

	items := make([]dto.UserResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewUserResponse(record))
	}

	return dto.UserListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	record, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(record), nil
}

func (s *userService) Create(ctx context.Context, actor ActivityActor, meta RequestMeta, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	roles, err := s.resolveRoles(ctx, payload.RoleIDs)
	if err != nil {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	status := strings.TrimSpace(payload.Status)
	if status == "" {
		status = "active"
	}

	user := models.User{
		Username:     strings.TrimSpace(payload.Username),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		PasswordHash: string(hash),
		Status:       status,
		Roles:        roles,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrUserExists
		}
		return dto.UserResponse{}, err
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionCreate,
		ResourceType: models.ResourceUser,
		ResourceID:   &created.ID,
		Payload: map[string]interface{}{
			"username": created.Username,
			"email":    created.Email,
			"role_ids": payload.RoleIDs,
		},
		Meta: meta,
	})
	if s.notifier != nil && len(roles) > 0 {
		s.notifier.PermissionsUpdated(models.ResourceUser, created.ID)
	}

	return dto.NewUserResponse(created), nil
}

func (s *userService) Update(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	fields := map[string]interface{}{}
	if payload.Username != nil {
		fields["username"] = strings.TrimSpace(*payload.Username)
	}
	if payload.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*payload.Email))
	}
	if payload.Status != nil {
		fields["status"] = *payload.Status
	}
	if payload.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), bcrypt.DefaultCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		fields["password_hash"] = string(hash)
	}

	if err := s.users.Update(ctx, id, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrUserExists
		}
		return dto.UserResponse{}, err
	}

	rolesReplaced := false
	if payload.RoleIDs != nil {
		roles, err := s.resolveRoles(ctx, *payload.RoleIDs)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if err := s.users.ReplaceRoles(ctx, &existing, roles); err != nil {
			return dto.UserResponse{}, err
		}
		rolesReplaced = true
	}

	updated, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionUpdate,
		ResourceType: models.ResourceUser,
		ResourceID:   &updated.ID,
		Payload:      userPatchPayload(fields, payload.RoleIDs),
		Meta:         meta,
	})
	if rolesReplaced && s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourceUser, updated.ID)
	}

	return dto.NewUserResponse(updated), nil
}

func (s *userService) Delete(ctx context.Context, actor ActivityActor, meta RequestMeta, id uint) error {
	if id == actor.ID {
		return ErrSelfDelete
	}

	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.Record(ctx, ActivityEntry{
		Actor:        actor,
		Action:       models.ActionDelete,
		ResourceType: models.ResourceUser,
		ResourceID:   &existing.ID,
		Payload: map[string]interface{}{
			"username": existing.Username,
			"email":    existing.Email,
		},
		Meta: meta,
	})
	if s.notifier != nil {
		s.notifier.PermissionsUpdated(models.ResourceUser, existing.ID)
	}

	return nil
}

func (s *userService) resolveRoles(ctx context.Context, ids []uint) ([]models.Role, error) {
	if len(ids) == 0 {
		return []models.Role{}, nil
	}
	roles, err := s.roles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(dedupeIDs(ids)) {
		return nil, ErrRoleNotFound
	}
	return roles, nil
}

func userPatchPayload(fields map[string]interface{}, roleIDs *[]uint) map[string]interface{} {
	payload := patchPayload(fields)
	if _, ok := payload["password_hash"]; ok {
		delete(payload, "password_hash")
		payload["password"] = "***"
	}
	if roleIDs != nil {
		payload["role_ids"] = *roleIDs
	}
	return payload
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
