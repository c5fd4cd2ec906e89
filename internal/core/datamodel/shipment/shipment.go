package shipment

import "time"

type Shipment struct {
	ID              string    `gorm:"column:id;primaryKey;size:36"`
	BillOfLading    string    `gorm:"column:bill_of_lading;uniqueIndex;not null"`
	Description     string    `gorm:"column:description;not null"`
	WeightKg        float64   `gorm:"column:weight_kg;not null"`
	Dimensions      string    `gorm:"column:dimensions"`
	ArrivedAt       time.Time `gorm:"column:arrived_at;not null"`
	ClientID        string    `gorm:"column:client_id;size:36;index;not null"`
	StorageLocation string    `gorm:"column:storage_location"`
	Status          string    `gorm:"column:status;index;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shipment) TableName() string {
	return "shipments"
}

// StatusEvent rows are written once and never updated.
type StatusEvent struct {
	ID         int64     `gorm:"primaryKey"`
	ShipmentID string    `gorm:"column:shipment_id;size:36;index;not null"`
	Status     string    `gorm:"column:status;not null"`
	Location   string    `gorm:"column:location"`
	OccurredAt time.Time `gorm:"column:occurred_at;index;not null"`
	ActorID    *string   `gorm:"column:actor_id;size:36;index"`
	Notes      string    `gorm:"column:notes"`
}

func (StatusEvent) TableName() string {
	return "shipment_status_events"
}
