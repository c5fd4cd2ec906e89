package billing

import "time"

type Invoice struct {
	ID           int64      `gorm:"primaryKey"`
	ShipmentID   string     `gorm:"column:shipment_id;size:36;uniqueIndex;not null"`
	Amount       int64      `gorm:"column:amount;not null"`
	IssuedAt     time.Time  `gorm:"column:issued_at;not null"`
	PaidAt       *time.Time `gorm:"column:paid_at"`
	Status       string     `gorm:"column:status;not null"`
	FeeBreakdown string     `gorm:"column:fee_breakdown"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Invoice) TableName() string {
	return "invoices"
}

type Transaction struct {
	ID                string     `gorm:"column:id;primaryKey;size:36"`
	ShipmentID        string     `gorm:"column:shipment_id;size:36;index;not null"`
	PayerID           *string    `gorm:"column:payer_id;size:36;index"`
	AmountExclTax     int64      `gorm:"column:amount_excl_tax;not null"`
	TotalAmount       int64      `gorm:"column:total_amount;not null"`
	FeeType           string     `gorm:"column:fee_type;not null"`
	Status            string     `gorm:"column:status;index;not null"`
	PaymentMethod     string     `gorm:"column:payment_method"`
	ExternalReference *string    `gorm:"column:external_reference;uniqueIndex"`
	PaidAt            *time.Time `gorm:"column:paid_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "payment_transactions"
}
