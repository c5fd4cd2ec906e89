package audit

import (
	"time"

	auditDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/audit"
)

// Entry is an immutable fact about a security or administrative action.
type Entry struct {
	ID           int64     `json:"id"`
	ActorID      *string   `json:"actor_id,omitempty"`
	ActorEmail   string    `json:"actor_email,omitempty"`
	ActionType   string    `json:"action_type"`
	ResourceName string    `json:"resource_name"`
	ResourceID   string    `json:"resource_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	OriginIP     string    `json:"origin_ip,omitempty"`
	Details      string    `json:"details,omitempty"`
}

// Filter narrows a Query. Search matches details, resource id and origin
// address, case-insensitively.
type Filter struct {
	ActionType   string
	ResourceName string
	ActorID      string
	Search       string
	Limit        int
	Offset       int
}

func FromDataModel(e *auditDatamodel.Entry) *Entry {
	return &Entry{
		ID:           e.ID,
		ActorID:      e.ActorID,
		ActorEmail:   e.ActorEmail,
		ActionType:   e.ActionType,
		ResourceName: e.ResourceName,
		ResourceID:   e.ResourceID,
		OccurredAt:   e.OccurredAt,
		OriginIP:     e.OriginIP,
		Details:      e.Details,
	}
}
