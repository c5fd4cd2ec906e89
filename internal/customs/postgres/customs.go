package postgres

import (
	"context"
	"errors"

	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

type DeclarationRepository struct {
	db *gorm.DB
}

func NewDeclarationRepository(db *gorm.DB) *DeclarationRepository {
	return &DeclarationRepository{db: db}
}

func (r *DeclarationRepository) Create(ctx context.Context, d *customsDatamodel.Declaration) error {
	return database.Conn(ctx, r.db).Create(d).Error
}

func (r *DeclarationRepository) GetByID(ctx context.Context, id int64) (*customsDatamodel.Declaration, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *DeclarationRepository) GetByShipment(ctx context.Context, shipmentID string) (*customsDatamodel.Declaration, error) {
	return r.first(ctx, "shipment_id = ?", shipmentID)
}

func (r *DeclarationRepository) GetByNumber(ctx context.Context, number string) (*customsDatamodel.Declaration, error) {
	return r.first(ctx, "declaration_number = ?", number)
}

func (r *DeclarationRepository) first(ctx context.Context, query string, arg interface{}) (*customsDatamodel.Declaration, error) {
	var d customsDatamodel.Declaration
	err := database.Conn(ctx, r.db).Where(query, arg).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DeclarationRepository) Save(ctx context.Context, d *customsDatamodel.Declaration) error {
	return database.Conn(ctx, r.db).Save(d).Error
}

func (r *DeclarationRepository) ShipmentExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&shipmentDatamodel.Shipment{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *DeclarationRepository) AccountExists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
