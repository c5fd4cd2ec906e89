package pickup

import "time"

type Pickup struct {
	ID               int64     `gorm:"primaryKey"`
	ShipmentID       string    `gorm:"column:shipment_id;size:36;uniqueIndex;not null"`
	PickedUpAt       time.Time `gorm:"column:picked_up_at;not null"`
	ValidatorID      string    `gorm:"column:validator_id;size:36;index;not null"`
	IdentityProofRef string    `gorm:"column:identity_proof_ref;not null"`
	Signature        string    `gorm:"column:signature"`
}

func (Pickup) TableName() string {
	return "pickups"
}
