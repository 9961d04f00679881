package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/models"
)

// RoleFilter narrows role listings.
type RoleFilter struct {
	Page   int
	Limit  int
	Search string
}

// RoleRepository persists roles and their page assignments.
type RoleRepository interface {
	List(ctx context.Context, filter RoleFilter) ([]models.Role, int64, error)
	GetByID(ctx context.Context, id uint) (models.Role, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	ReplacePages(ctx context.Context, role *models.Role, pages []models.Page) error
	Delete(ctx context.Context, id uint) error
	UserCount(ctx context.Context, roleID uint) (int64, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository constructs the role repository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context, filter RoleFilter) ([]models.Role, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Role{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.Limit)

	var roles []models.Role
	if err := query.Preload("Pages").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepository) GetByID(ctx context.Context, id uint) (models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Preload("Pages").First(&role, id).Error
	return role, err
}

func (r *roleRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Role, error) {
	if len(ids) == 0 {
		return []models.Role{}, nil
	}
	var roles []models.Role
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(fields).Error
}

func (r *roleRepository) ReplacePages(ctx context.Context, role *models.Role, pages []models.Page) error {
	return r.db.WithContext(ctx).Model(role).Association("Pages").Replace(pages)
}

func (r *roleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Select("Pages").Delete(&models.Role{ID: id}).Error
}

func (r *roleRepository) UserCount(ctx context.Context, roleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("user_roles").Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}
