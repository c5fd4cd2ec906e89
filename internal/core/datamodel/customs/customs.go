package customs

import "time"

type Declaration struct {
	ID                int64      `gorm:"primaryKey"`
	ShipmentID        string     `gorm:"column:shipment_id;size:36;uniqueIndex;not null"`
	OfficerID         string     `gorm:"column:officer_id;size:36;index;not null"`
	DeclarationNumber string     `gorm:"column:declaration_number;uniqueIndex;not null"`
	SubmittedAt       time.Time  `gorm:"column:submitted_at;not null"`
	ClearedAt         *time.Time `gorm:"column:cleared_at"`
	Status            string     `gorm:"column:status;not null"`
	DocumentRef       string     `gorm:"column:document_ref"`
	RejectionReason   string     `gorm:"column:rejection_reason"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Declaration) TableName() string {
	return "customs_declarations"
}
