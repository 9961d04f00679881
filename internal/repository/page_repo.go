package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/models"
)

// PageFilter narrows page listings.
type PageFilter struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// PageStats aggregates advisory page counts.
type PageStats struct {
	Total    int64
	Active   int64
	Inactive int64
}

// PageRepository persists pages and their role assignments.
type PageRepository interface {
	List(ctx context.Context, filter PageFilter) ([]models.Page, int64, error)
	ListSimple(ctx context.Context, activeOnly bool) ([]models.Page, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Page, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Page, error)
	GetByID(ctx context.Context, id uint) (models.Page, error)
	Create(ctx context.Context, page *models.Page) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	RoleCount(ctx context.Context, pageID uint) (int64, error)
	HasAccess(ctx context.Context, userID uint, url string) (bool, error)
	Stats(ctx context.Context) (PageStats, error)
}

type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository constructs the page repository.
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

func (r *pageRepository) List(ctx context.Context, filter PageFilter) ([]models.Page, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Page{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(url) LIKE ?", pattern, pattern)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.Limit)

	var pages []models.Page
	if err := query.Order("created_at DESC").Find(&pages).Error; err != nil {
		return nil, 0, err
	}
	return pages, total, nil
}

func (r *pageRepository) ListSimple(ctx context.Context, activeOnly bool) ([]models.Page, error) {
	query := r.db.WithContext(ctx).Model(&models.Page{})
	if activeOnly {
		query = query.Where("status = ?", models.PageStatusActive)
	}

	var pages []models.Page
	if err := query.Order("name ASC").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *pageRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Page, error) {
	if len(ids) == 0 {
		return []models.Page{}, nil
	}
	var pages []models.Page
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// ListByUser returns the union of active pages across all of the user's roles.
func (r *pageRepository) ListByUser(ctx context.Context, userID uint) ([]models.Page, error) {
	var pages []models.Page
	err := r.db.WithContext(ctx).
		Distinct("pages.*").
		Joins("JOIN role_pages ON role_pages.page_id = pages.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_pages.role_id").
		Where("user_roles.user_id = ? AND pages.status = ?", userID, models.PageStatusActive).
		Order("pages.name ASC").
		Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *pageRepository) GetByID(ctx context.Context, id uint) (models.Page, error) {
	var page models.Page
	err := r.db.WithContext(ctx).First(&page, id).Error
	return page, err
}

func (r *pageRepository) Create(ctx context.Context, page *models.Page) error {
	return r.db.WithContext(ctx).Create(page).Error
}

func (r *pageRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", id).Updates(fields).Error
}

func (r *pageRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Page{}, id).Error
}

func (r *pageRepository) RoleCount(ctx context.Context, pageID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("role_pages").Where("page_id = ?", pageID).Count(&count).Error
	return count, err
}

func (r *pageRepository) HasAccess(ctx context.Context, userID uint, url string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Page{}).
		Joins("JOIN role_pages ON role_pages.page_id = pages.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_pages.role_id").
		Where("user_roles.user_id = ? AND pages.url = ? AND pages.status = ?", userID, url, models.PageStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *pageRepository) Stats(ctx context.Context) (PageStats, error) {
	var stats PageStats
	base := r.db.WithContext(ctx).Model(&models.Page{})

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return PageStats{}, err
	}
	if err := base.Session(&gorm.Session{}).Where("status = ?", models.PageStatusActive).Count(&stats.Active).Error; err != nil {
		return PageStats{}, err
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

func applyPagination(query *gorm.DB, page, limit int) *gorm.DB {
	if limit <= 0 {
		return query
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	return query.Offset(offset).Limit(limit)
}
