package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/transit241/port-logistics/internal/account"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*accountDatamodel.Account, error) {
	var acc accountDatamodel.Account
	err := database.Conn(ctx, r.db).Preload("Role").Where("id = ?", id).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepository) List(ctx context.Context, filter account.Filter) ([]*accountDatamodel.Account, int64, error) {
	q := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{})
	if filter.RoleName != "" {
		q = q.Joins("JOIN roles ON roles.id = accounts.role_id").Where("roles.name = ?", filter.RoleName)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(accounts.email) LIKE ? OR LOWER(accounts.first_name) LIKE ? OR LOWER(accounts.last_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	var accounts []*accountDatamodel.Account
	err := q.Preload("Role").
		Order("accounts.created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&accounts).Error
	return accounts, total, err
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, roleID int64) error {
	return database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("id = ?", id).
		Update("role_id", roleID).Error
}

// References counts the rows that prevent an account from being deleted.
func (r *AccountRepository) References(ctx context.Context, id string) (int64, error) {
	conn := database.Conn(ctx, r.db)

	var pickups, declarations, shipments int64
	if err := conn.Model(&pickupDatamodel.Pickup{}).Where("validator_id = ?", id).Count(&pickups).Error; err != nil {
		return 0, err
	}
	if err := conn.Model(&customsDatamodel.Declaration{}).Where("officer_id = ?", id).Count(&declarations).Error; err != nil {
		return 0, err
	}
	if err := conn.Model(&shipmentDatamodel.Shipment{}).Where("client_id = ?", id).Count(&shipments).Error; err != nil {
		return 0, err
	}
	return pickups + declarations + shipments, nil
}

// Delete removes the account and clears it as actor on history rows and as
// payer on transactions.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	conn := database.Conn(ctx, r.db)

	if err := conn.Model(&shipmentDatamodel.StatusEvent{}).Where("actor_id = ?", id).Update("actor_id", nil).Error; err != nil {
		return fmt.Errorf("detach status events: %w", err)
	}
	if err := conn.Model(&billingDatamodel.Transaction{}).Where("payer_id = ?", id).Update("payer_id", nil).Error; err != nil {
		return fmt.Errorf("detach transactions: %w", err)
	}
	return conn.Where("id = ?", id).Delete(&accountDatamodel.Account{}).Error
}

func (r *AccountRepository) ListRoles(ctx context.Context) ([]*accountDatamodel.Role, error) {
	var roles []*accountDatamodel.Role
	err := database.Conn(ctx, r.db).Preload("Permissions").Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *AccountRepository) GetRole(ctx context.Context, id int64) (*accountDatamodel.Role, error) {
	var role accountDatamodel.Role
	err := database.Conn(ctx, r.db).Preload("Permissions").Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *AccountRepository) GetRoleByName(ctx context.Context, name string) (*accountDatamodel.Role, error) {
	var role accountDatamodel.Role
	err := database.Conn(ctx, r.db).Preload("Permissions").Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *AccountRepository) CreateRole(ctx context.Context, role *accountDatamodel.Role) error {
	return database.Conn(ctx, r.db).Create(role).Error
}

// SaveRole updates the role columns and replaces its permission set.
func (r *AccountRepository) SaveRole(ctx context.Context, role *accountDatamodel.Role) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Model(role).Select("name", "description").Updates(role).Error; err != nil {
		return err
	}
	return conn.Model(role).Association("Permissions").Replace(role.Permissions)
}

// DeleteRole drops the role; accounts holding it keep no role.
func (r *AccountRepository) DeleteRole(ctx context.Context, id int64) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Model(&accountDatamodel.Account{}).Where("role_id = ?", id).Update("role_id", nil).Error; err != nil {
		return fmt.Errorf("detach accounts: %w", err)
	}
	role := &accountDatamodel.Role{ID: id}
	if err := conn.Model(role).Association("Permissions").Clear(); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}
	return conn.Delete(role).Error
}

func (r *AccountRepository) ListPermissions(ctx context.Context) ([]*accountDatamodel.Permission, error) {
	var perms []*accountDatamodel.Permission
	err := database.Conn(ctx, r.db).Order("code ASC").Find(&perms).Error
	return perms, err
}

func (r *AccountRepository) PermissionsByCode(ctx context.Context, codes []string) ([]accountDatamodel.Permission, error) {
	var perms []accountDatamodel.Permission
	if len(codes) == 0 {
		return perms, nil
	}
	err := database.Conn(ctx, r.db).Where("code IN ?", codes).Find(&perms).Error
	return perms, err
}
