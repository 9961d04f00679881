package dto

import (
	"time"

	"github.com/cmscrm/api/internal/models"
)

// RoleSummary is the reduced role shape embedded in user responses.
type RoleSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RoleResponse is the API representation of a role.
type RoleResponse struct {
	ID          uint                   `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Permissions map[string]interface{} `json:"permissions"`
	Pages       []SimplePageResponse   `json:"pages"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewRoleResponse maps a role model (with preloaded pages) to its API shape.
func NewRoleResponse(role models.Role) RoleResponse {
	pages := make([]SimplePageResponse, 0, len(role.Pages))
	for _, page := range role.Pages {
		pages = append(pages, NewSimplePageResponse(page))
	}
	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: role.Permissions,
		Pages:       pages,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// RoleListRequest carries role list query parameters.
type RoleListRequest struct {
	Page   int
	Limit  int
	Search string
}

// RoleListResult is the paginated role listing.
type RoleListResult struct {
	Items []RoleResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// RoleCreateRequest carries the fields accepted when creating a role.
type RoleCreateRequest struct {
	Name        string                 `json:"name" validate:"required,max=64"`
	Description string                 `json:"description" validate:"max=255"`
	Permissions map[string]interface{} `json:"permissions"`
	PageIDs     []uint                 `json:"page_ids"`
}

// RoleUpdateRequest is a sparse patch; a non-nil PageIDs replaces the full
// page assignment.
type RoleUpdateRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,max=64"`
	Description *string                 `json:"description" validate:"omitempty,max=255"`
	Permissions *map[string]interface{} `json:"permissions"`
	PageIDs     *[]uint                 `json:"page_ids"`
}
