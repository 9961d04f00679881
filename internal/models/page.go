package models

import "time"

// Page statuses accepted by the API.
const (
	PageStatusActive   = "active"
	PageStatusInactive = "inactive"
)

// Page is a navigable link (internal route or external URL) assignable to roles.
type Page struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	URL        string    `gorm:"size:512;not null;uniqueIndex" json:"url"`
	Icon       *string   `gorm:"size:512" json:"icon"`
	IsExternal bool      `gorm:"not null;default:false" json:"is_external"`
	Status     string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedBy  uint      `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Roles      []Role    `gorm:"many2many:role_pages" json:"roles,omitempty"`
}
