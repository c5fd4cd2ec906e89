package shipment

import (
	"time"

	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
)

type Status string

const (
	StatusAwaitingUnload   Status = "AWAITING_UNLOAD"
	StatusInTransit        Status = "IN_TRANSIT"
	StatusCustomsClearance Status = "CUSTOMS_CLEARANCE"
	StatusReadyForPickup   Status = "READY_FOR_PICKUP"
	StatusDelivered        Status = "DELIVERED"
	StatusDisputed         Status = "DISPUTED"
)

var statusLabels = map[Status]string{
	StatusAwaitingUnload:   "Awaiting unload",
	StatusInTransit:        "In transit",
	StatusCustomsClearance: "Customs clearance",
	StatusReadyForPickup:   "Ready for pickup",
	StatusDelivered:        "Delivered",
	StatusDisputed:         "Disputed",
}

// Statuses lists every status in custody-chain order.
var Statuses = []Status{
	StatusAwaitingUnload,
	StatusInTransit,
	StatusCustomsClearance,
	StatusReadyForPickup,
	StatusDelivered,
	StatusDisputed,
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the human readable form used in notifications.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Shipment struct {
	ID              string    `json:"id"`
	BillOfLading    string    `json:"bill_of_lading"`
	Description     string    `json:"description"`
	WeightKg        float64   `json:"weight_kg"`
	Dimensions      string    `json:"dimensions,omitempty"`
	ArrivedAt       time.Time `json:"arrived_at"`
	ClientID        string    `json:"client_id"`
	StorageLocation string    `json:"storage_location,omitempty"`
	Status          Status    `json:"status"`
	StatusLabel     string    `json:"status_label"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type StatusEvent struct {
	ID         int64     `json:"id"`
	ShipmentID string    `json:"shipment_id"`
	Status     Status    `json:"status"`
	Label      string    `json:"status_label"`
	Location   string    `json:"location,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    *string   `json:"actor_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// PublicView is what anonymous tracking exposes.
type PublicView struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	StatusLabel string         `json:"status_label"`
	History     []*StatusEvent `json:"history"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	ClientID string
	Status   Status
	Limit    int
	Offset   int
}

func ToDataModel(s *Shipment) *shipmentDatamodel.Shipment {
	return &shipmentDatamodel.Shipment{
		ID:              s.ID,
		BillOfLading:    s.BillOfLading,
		Description:     s.Description,
		WeightKg:        s.WeightKg,
		Dimensions:      s.Dimensions,
		ArrivedAt:       s.ArrivedAt,
		ClientID:        s.ClientID,
		StorageLocation: s.StorageLocation,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func FromDataModel(s *shipmentDatamodel.Shipment) *Shipment {
	status := Status(s.Status)
	return &Shipment{
		ID:              s.ID,
		BillOfLading:    s.BillOfLading,
		Description:     s.Description,
		WeightKg:        s.WeightKg,
		Dimensions:      s.Dimensions,
		ArrivedAt:       s.ArrivedAt,
		ClientID:        s.ClientID,
		StorageLocation: s.StorageLocation,
		Status:          status,
		StatusLabel:     status.Label(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func EventFromDataModel(e *shipmentDatamodel.StatusEvent) *StatusEvent {
	status := Status(e.Status)
	return &StatusEvent{
		ID:         e.ID,
		ShipmentID: e.ShipmentID,
		Status:     status,
		Label:      status.Label(),
		Location:   e.Location,
		OccurredAt: e.OccurredAt,
		ActorID:    e.ActorID,
		Notes:      e.Notes,
	}
}
