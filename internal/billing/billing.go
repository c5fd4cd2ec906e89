package billing

import (
	"time"

	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionSucceeded TransactionStatus = "SUCCEEDED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionRefunded  TransactionStatus = "REFUNDED"
)

type FeeType string

const (
	FeeHandling FeeType = "HANDLING"
	FeeCustoms  FeeType = "CUSTOMS"
	FeeStorage  FeeType = "STORAGE"
	FeeOther    FeeType = "OTHER"
)

// transactionMoves lists the status changes a payment transaction allows.
var transactionMoves = map[TransactionStatus][]TransactionStatus{
	TransactionPending:   {TransactionSucceeded, TransactionFailed},
	TransactionFailed:    {TransactionPending},
	TransactionSucceeded: {TransactionRefunded},
}

// Amounts are in the smallest currency unit.
type Invoice struct {
	ID           int64         `json:"id"`
	ShipmentID   string        `json:"shipment_id"`
	Amount       int64         `json:"amount"`
	IssuedAt     time.Time     `json:"issued_at"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
	Status       InvoiceStatus `json:"status"`
	FeeBreakdown string        `json:"fee_breakdown,omitempty"`
}

func (i *Invoice) CanBePaid() bool {
	return i.Status == InvoicePending
}

func (i *Invoice) CanBeCancelled() bool {
	return i.Status == InvoicePending
}

type Transaction struct {
	ID                string            `json:"id"`
	ShipmentID        string            `json:"shipment_id"`
	PayerID           *string           `json:"payer_id,omitempty"`
	AmountExclTax     int64             `json:"amount_excl_tax"`
	TotalAmount       int64             `json:"total_amount"`
	FeeType           FeeType           `json:"fee_type"`
	Status            TransactionStatus `json:"status"`
	PaymentMethod     string            `json:"payment_method,omitempty"`
	ExternalReference *string           `json:"external_reference,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (t *Transaction) CanMoveTo(next TransactionStatus) bool {
	for _, s := range transactionMoves[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

func InvoiceFromDataModel(i *billingDatamodel.Invoice) *Invoice {
	return &Invoice{
		ID:           i.ID,
		ShipmentID:   i.ShipmentID,
		Amount:       i.Amount,
		IssuedAt:     i.IssuedAt,
		PaidAt:       i.PaidAt,
		Status:       InvoiceStatus(i.Status),
		FeeBreakdown: i.FeeBreakdown,
	}
}

func TransactionFromDataModel(t *billingDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:                t.ID,
		ShipmentID:        t.ShipmentID,
		PayerID:           t.PayerID,
		AmountExclTax:     t.AmountExclTax,
		TotalAmount:       t.TotalAmount,
		FeeType:           FeeType(t.FeeType),
		Status:            TransactionStatus(t.Status),
		PaymentMethod:     t.PaymentMethod,
		ExternalReference: t.ExternalReference,
		PaidAt:            t.PaidAt,
		CreatedAt:         t.CreatedAt,
	}
}
