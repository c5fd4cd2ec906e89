package postgres

import (
	"context"
	"errors"

	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

type BillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) CreateInvoice(ctx context.Context, i *billingDatamodel.Invoice) error {
	return database.Conn(ctx, r.db).Create(i).Error
}

func (r *BillingRepository) GetInvoice(ctx context.Context, id int64) (*billingDatamodel.Invoice, error) {
	var inv billingDatamodel.Invoice
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &inv, nil
}

func (r *BillingRepository) GetInvoiceByShipment(ctx context.Context, shipmentID string) (*billingDatamodel.Invoice, error) {
	var inv billingDatamodel.Invoice
	if err := database.Conn(ctx, r.db).Where("shipment_id = ?", shipmentID).First(&inv).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &inv, nil
}

func (r *BillingRepository) SaveInvoice(ctx context.Context, i *billingDatamodel.Invoice) error {
	return database.Conn(ctx, r.db).Save(i).Error
}

func (r *BillingRepository) CreateTransaction(ctx context.Context, t *billingDatamodel.Transaction) error {
	return database.Conn(ctx, r.db).Create(t).Error
}

func (r *BillingRepository) GetTransaction(ctx context.Context, id string) (*billingDatamodel.Transaction, error) {
	var t billingDatamodel.Transaction
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &t, nil
}

func (r *BillingRepository) GetTransactionByReference(ctx context.Context, ref string) (*billingDatamodel.Transaction, error) {
	var t billingDatamodel.Transaction
	if err := database.Conn(ctx, r.db).Where("external_reference = ?", ref).First(&t).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &t, nil
}

func (r *BillingRepository) ListTransactions(ctx context.Context, shipmentID string) ([]*billingDatamodel.Transaction, error) {
	var txs []*billingDatamodel.Transaction
	err := database.Conn(ctx, r.db).
		Where("shipment_id = ?", shipmentID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}

func (r *BillingRepository) SaveTransaction(ctx context.Context, t *billingDatamodel.Transaction) error {
	return database.Conn(ctx, r.db).Save(t).Error
}

func (r *BillingRepository) ShipmentExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&shipmentDatamodel.Shipment{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// notFoundAsNil turns gorm's not-found error into the nil, nil result the
// services expect.
func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
