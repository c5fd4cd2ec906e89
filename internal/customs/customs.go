package customs

import (
	"time"

	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusCleared   Status = "CLEARED"
	StatusRejected  Status = "REJECTED"
)

type Declaration struct {
	ID                int64      `json:"id"`
	ShipmentID        string     `json:"shipment_id"`
	OfficerID         string     `json:"officer_id"`
	DeclarationNumber string     `json:"declaration_number"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	ClearedAt         *time.Time `json:"cleared_at,omitempty"`
	Status            Status     `json:"status"`
	DocumentRef       string     `json:"document_ref,omitempty"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
}

// CanBeSubmitted reports whether the declaration is still a draft.
func (d *Declaration) CanBeSubmitted() bool {
	return d.Status == StatusDraft
}

// CanBeApproved is true for anything not already cleared.
func (d *Declaration) CanBeApproved() bool {
	return d.Status != StatusCleared
}

func (d *Declaration) CanBeRejected() bool {
	return d.Status != StatusCleared && d.Status != StatusRejected
}

func FromDataModel(d *customsDatamodel.Declaration) *Declaration {
	return &Declaration{
		ID:                d.ID,
		ShipmentID:        d.ShipmentID,
		OfficerID:         d.OfficerID,
		DeclarationNumber: d.DeclarationNumber,
		SubmittedAt:       d.SubmittedAt,
		ClearedAt:         d.ClearedAt,
		Status:            Status(d.Status),
		DocumentRef:       d.DocumentRef,
		RejectionReason:   d.RejectionReason,
	}
}
