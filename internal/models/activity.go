package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded in the activity trail.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Resource types referenced by activity entries.
const (
	ResourcePage = "page"
	ResourceUser = "user"
	ResourceRole = "role"
)

// ActivityLog is an append-only audit record of a mutating action. Entries are
// never updated or deleted by the application.
type ActivityLog struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       uint              `gorm:"not null" json:"actor_id"`
	ActorUsername string            `gorm:"size:64;not null" json:"actor_username"`
	Action        string            `gorm:"size:16;not null" json:"action"`
	ResourceType  string            `gorm:"size:32;not null" json:"resource_type"`
	ResourceID    *uint             `json:"resource_id"`
	Payload       datatypes.JSONMap `gorm:"type:json" json:"payload"`
	IPAddress     string            `gorm:"size:64" json:"ip_address"`
	UserAgent     string            `gorm:"size:255" json:"user_agent"`
	CreatedAt     time.Time         `json:"created_at"`
}
