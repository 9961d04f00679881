package dto

import (
	"time"

	"github.com/cmscrm/api/internal/models"
)

// ActivityLogResponse is the API representation of an audit entry.
type ActivityLogResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorUsername string                 `json:"actor_username"`
	Action        string                 `json:"action"`
	ResourceType  string                 `json:"resource_type"`
	ResourceID    *uint                  `json:"resource_id"`
	Payload       map[string]interface{} `json:"payload"`
	IPAddress     string                 `json:"ip_address"`
	UserAgent     string                 `json:"user_agent"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewActivityLogResponse maps an audit entry to its API shape.
func NewActivityLogResponse(entry models.ActivityLog) ActivityLogResponse {
	return ActivityLogResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorUsername: entry.ActorUsername,
		Action:        entry.Action,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		Payload:       entry.Payload,
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		CreatedAt:     entry.CreatedAt,
	}
}

// ActivityListRequest carries audit-trail query parameters.
type ActivityListRequest struct {
	Page         int
	Limit        int
	ActorID      uint
	Action       string
	ResourceType string
}

// ActivityListResult is the paginated audit-trail listing.
type ActivityListResult struct {
	Items []ActivityLogResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}
