package postgres

import (
	"context"
	"errors"

	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

type PickupRepository struct {
	db *gorm.DB
}

func NewPickupRepository(db *gorm.DB) *PickupRepository {
	return &PickupRepository{db: db}
}

func (r *PickupRepository) Create(ctx context.Context, p *pickupDatamodel.Pickup) error {
	return database.Conn(ctx, r.db).Create(p).Error
}

func (r *PickupRepository) GetByID(ctx context.Context, id int64) (*pickupDatamodel.Pickup, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PickupRepository) GetByShipment(ctx context.Context, shipmentID string) (*pickupDatamodel.Pickup, error) {
	return r.first(ctx, "shipment_id = ?", shipmentID)
}

func (r *PickupRepository) first(ctx context.Context, query string, arg interface{}) (*pickupDatamodel.Pickup, error) {
	var p pickupDatamodel.Pickup
	err := database.Conn(ctx, r.db).Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PickupRepository) AccountExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
