package dto

import (
	"time"

	"github.com/cmscrm/api/internal/models"
)

// UserResponse is the API representation of a user. The password hash never
// leaves the model layer.
type UserResponse struct {
	ID        uint          `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Status    string        `json:"status"`
	Roles     []RoleSummary `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewUserResponse maps a user model (with preloaded roles) to its API shape.
func NewUserResponse(user models.User) UserResponse {
	roles := make([]RoleSummary, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, RoleSummary{ID: role.ID, Name: role.Name})
	}
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Status:    user.Status,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// UserListRequest carries user list query parameters.
type UserListRequest struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// UserListResult is the paginated user listing.
type UserListResult struct {
	Items []UserResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// UserCreateRequest carries the fields accepted when creating a user.
type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Status   string `json:"status" validate:"omitempty,oneof=active inactive"`
	RoleIDs  []uint `json:"role_ids"`
}

// UserUpdateRequest is a sparse patch; a non-nil RoleIDs replaces the full
// role assignment.
type UserUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive"`
	RoleIDs  *[]uint `json:"role_ids"`
}
