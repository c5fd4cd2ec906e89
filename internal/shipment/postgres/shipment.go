package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/shipment"

	"gorm.io/gorm"
)

type ShipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

func (r *ShipmentRepository) Create(ctx context.Context, s *shipmentDatamodel.Shipment) error {
	return database.Conn(ctx, r.db).Create(s).Error
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*shipmentDatamodel.Shipment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ShipmentRepository) GetByBillOfLading(ctx context.Context, bl string) (*shipmentDatamodel.Shipment, error) {
	return r.first(ctx, "bill_of_lading = ?", bl)
}

func (r *ShipmentRepository) first(ctx context.Context, query string, arg interface{}) (*shipmentDatamodel.Shipment, error) {
	var s shipmentDatamodel.Shipment
	err := database.Conn(ctx, r.db).Where(query, arg).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) List(ctx context.Context, filter shipment.Filter) ([]*shipmentDatamodel.Shipment, int64, error) {
	q := database.Conn(ctx, r.db).Model(&shipmentDatamodel.Shipment{})
	if filter.ClientID != "" {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	var rows []*shipmentDatamodel.Shipment
	err := q.Order("arrived_at DESC").Order("id ASC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time) error {
	res := database.Conn(ctx, r.db).Model(&shipmentDatamodel.Shipment{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ShipmentRepository) InsertEvent(ctx context.Context, event *shipmentDatamodel.StatusEvent) error {
	return database.Conn(ctx, r.db).Create(event).Error
}

// History is ordered newest first; id breaks ties between events stamped in
// the same instant.
func (r *ShipmentRepository) History(ctx context.Context, shipmentID string) ([]*shipmentDatamodel.StatusEvent, error) {
	var rows []*shipmentDatamodel.StatusEvent
	err := database.Conn(ctx, r.db).
		Where("shipment_id = ?", shipmentID).
		Order("occurred_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ClientEmail returns "" when the account does not exist.
func (r *ShipmentRepository) ClientEmail(ctx context.Context, clientID string) (string, error) {
	var emails []string
	err := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("id = ?", clientID).
		Limit(1).
		Pluck("email", &emails).Error
	if err != nil || len(emails) == 0 {
		return "", err
	}
	return emails[0], nil
}

func (r *ShipmentRepository) CountTransactions(ctx context.Context, shipmentID string) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&billingDatamodel.Transaction{}).
		Where("shipment_id = ?", shipmentID).
		Count(&n).Error
	return n, err
}

// Delete removes the shipment and everything that hangs off it. Callers
// check CountTransactions first.
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	conn := database.Conn(ctx, r.db)
	for _, model := range []interface{}{
		&shipmentDatamodel.StatusEvent{},
		&pickupDatamodel.Pickup{},
		&billingDatamodel.Invoice{},
		&customsDatamodel.Declaration{},
	} {
		if err := conn.Where("shipment_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	return conn.Where("id = ?", id).Delete(&shipmentDatamodel.Shipment{}).Error
}
