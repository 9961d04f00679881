package models

import (
	"time"

	"gorm.io/datatypes"
)

// Role is a named permission group linking users to a set of accessible pages.
type Role struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string            `gorm:"size:255" json:"description"`
	Permissions datatypes.JSONMap `gorm:"type:json" json:"permissions"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Pages       []Page            `gorm:"many2many:role_pages" json:"pages,omitempty"`
}
