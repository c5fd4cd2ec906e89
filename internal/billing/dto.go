package billing

type CreateInvoiceDTO struct {
	ShipmentID   string `json:"shipment_id" validate:"required,max=36"`
	Amount       int64  `json:"amount" validate:"gt=0"`
	FeeBreakdown string `json:"fee_breakdown" validate:"max=5000"`
}

type RecordTransactionDTO struct {
	ShipmentID        string  `json:"shipment_id" validate:"required,max=36"`
	AmountExclTax     int64   `json:"amount_excl_tax" validate:"gt=0"`
	TotalAmount       int64   `json:"total_amount" validate:"gtefield=AmountExclTax"`
	FeeType           FeeType `json:"fee_type" validate:"required,oneof=HANDLING CUSTOMS STORAGE OTHER"`
	PaymentMethod     string  `json:"payment_method" validate:"max=50"`
	ExternalReference string  `json:"external_reference" validate:"max=255"`
}

type UpdateTransactionStatusDTO struct {
	Status            TransactionStatus `json:"status" validate:"required,oneof=PENDING SUCCEEDED FAILED REFUNDED"`
	PaymentMethod     string            `json:"payment_method" validate:"max=50"`
	ExternalReference string            `json:"external_reference" validate:"max=255"`
}

type TransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}
