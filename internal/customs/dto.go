package customs

// CreateDeclarationDTO opens a declaration. OfficerID defaults to the caller.
type CreateDeclarationDTO struct {
	ShipmentID        string `json:"shipment_id" validate:"required,max=36"`
	OfficerID         string `json:"officer_id" validate:"omitempty,max=36"`
	DeclarationNumber string `json:"declaration_number" validate:"required,max=100"`
	DocumentRef       string `json:"document_ref" validate:"max=500"`
}

type RejectDeclarationDTO struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}
