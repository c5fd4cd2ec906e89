package pickup

// CreatePickupDTO records a pickup. ValidatorID defaults to the caller.
type CreatePickupDTO struct {
	ShipmentID       string `json:"shipment_id" validate:"required,max=36"`
	ValidatorID      string `json:"validator_id" validate:"omitempty,max=36"`
	IdentityProofRef string `json:"identity_proof_ref" validate:"required,max=500"`
	Signature        string `json:"signature" validate:"max=100000"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
