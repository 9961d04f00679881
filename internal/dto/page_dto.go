package dto

import (
	"time"

	"github.com/cmscrm/api/internal/models"
)

// PageResponse is the API representation of a page.
type PageResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Icon       *string   `json:"icon"`
	IsExternal bool      `json:"is_external"`
	Status     string    `json:"status"`
	CreatedBy  uint      `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewPageResponse maps a page model to its API shape.
func NewPageResponse(page models.Page) PageResponse {
	return PageResponse{
		ID:         page.ID,
		Name:       page.Name,
		URL:        page.URL,
		Icon:       page.Icon,
		IsExternal: page.IsExternal,
		Status:     page.Status,
		CreatedBy:  page.CreatedBy,
		CreatedAt:  page.CreatedAt,
		UpdatedAt:  page.UpdatedAt,
	}
}

// PageListRequest carries list query parameters.
type PageListRequest struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// PageListResult is the paginated page listing.
type PageListResult struct {
	Items []PageResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// PageCreateRequest carries the fields accepted when creating a page.
type PageCreateRequest struct {
	Name       string `json:"name" form:"name" validate:"required,max=128"`
	URL        string `json:"url" form:"url" validate:"required,max=512"`
	IsExternal bool   `json:"is_external" form:"is_external"`
	Status     string `json:"status" form:"status" validate:"omitempty,oneof=active inactive"`
}

// PageUpdateRequest is a sparse patch: nil fields are left untouched.
type PageUpdateRequest struct {
	Name       *string `json:"name" form:"name" validate:"omitempty,max=128"`
	URL        *string `json:"url" form:"url" validate:"omitempty,max=512"`
	IsExternal *bool   `json:"is_external" form:"is_external"`
	Status     *string `json:"status" form:"status" validate:"omitempty,oneof=active inactive"`
}

// SimplePageResponse is the reduced shape used by pickers and role assignment.
type SimplePageResponse struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Icon       *string `json:"icon"`
	IsExternal bool    `json:"is_external"`
}

// NewSimplePageResponse maps a page model to its reduced shape.
func NewSimplePageResponse(page models.Page) SimplePageResponse {
	return SimplePageResponse{
		ID:         page.ID,
		Name:       page.Name,
		URL:        page.URL,
		Icon:       page.Icon,
		IsExternal: page.IsExternal,
	}
}

// PageStatsResponse aggregates advisory page counts.
type PageStatsResponse struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// PageAccessResponse reports whether a user's roles grant a page URL.
type PageAccessResponse struct {
	UserID    uint   `json:"user_id"`
	PageURL   string `json:"page_url"`
	HasAccess bool   `json:"has_access"`
}
