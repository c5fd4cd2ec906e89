package shipment

type CreateShipmentDTO struct {
	BillOfLading    string  `json:"bill_of_lading" validate:"required,bill_of_lading"`
	Description     string  `json:"description" validate:"required,max=2000"`
	WeightKg        float64 `json:"weight_kg" validate:"gt=0"`
	Dimensions      string  `json:"dimensions" validate:"max=200"`
	ClientID        string  `json:"client_id" validate:"required,max=36"`
	StorageLocation string  `json:"storage_location" validate:"max=100"`
}

type AppendStatusDTO struct {
	Status   Status `json:"status" validate:"required,oneof=AWAITING_UNLOAD IN_TRANSIT CUSTOMS_CLEARANCE READY_FOR_PICKUP DELIVERED DISPUTED"`
	Location string `json:"location" validate:"max=255"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type ShipmentsResponse struct {
	Shipments []*Shipment `json:"shipments"`
	Total     int64       `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}

type HistoryResponse struct {
	ShipmentID string         `json:"shipment_id"`
	History    []*StatusEvent `json:"history"`
}
