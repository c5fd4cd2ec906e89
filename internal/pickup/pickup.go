package pickup

import (
	"time"

	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
)

// Pickup attests that a shipment left the port with its owner.
type Pickup struct {
	ID               int64     `json:"id"`
	ShipmentID       string    `json:"shipment_id"`
	PickedUpAt       time.Time `json:"picked_up_at"`
	ValidatorID      string    `json:"validator_id"`
	IdentityProofRef string    `json:"identity_proof_ref"`
	Signature        string    `json:"signature,omitempty"`
}

func FromDataModel(p *pickupDatamodel.Pickup) *Pickup {
	return &Pickup{
		ID:               p.ID,
		ShipmentID:       p.ShipmentID,
		PickedUpAt:       p.PickedUpAt,
		ValidatorID:      p.ValidatorID,
		IdentityProofRef: p.IdentityProofRef,
		Signature:        p.Signature,
	}
}
