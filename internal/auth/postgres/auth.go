package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/transit241/port-logistics/internal/account"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/database"

	"gorm.io/gorm"
)

// Repository is the credential side of the accounts table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*accountDatamodel.Account, error) {
	return r.first(ctx, "email = ?", email)
}

// GetByID loads the account with its role and the role's permissions.
func (r *Repository) GetByID(ctx context.Context, id string) (*accountDatamodel.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*accountDatamodel.Account, error) {
	var acc accountDatamodel.Account
	err := database.Conn(ctx, r.db).
		Preload("Role.Permissions").
		Where(query, arg).
		First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (r *Repository) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).Where("phone = ?", phone).Count(&n).Error
	return n > 0, err
}

func (r *Repository) Create(ctx context.Context, acc *accountDatamodel.Account) error {
	return database.Conn(ctx, r.db).Omit("Role").Create(acc).Error
}

func (r *Repository) GetRoleByName(ctx context.Context, name string) (*accountDatamodel.Role, error) {
	var role accountDatamodel.Role
	err := database.Conn(ctx, r.db).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *Repository) SetResetCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	return database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reset_code":            code,
			"reset_code_expires_at": expiresAt,
		}).Error
}

// ResetPassword stores the new hash and consumes the reset code.
func (r *Repository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash":         passwordHash,
			"reset_code":            nil,
			"reset_code_expires_at": nil,
		}).Error
}

func (r *Repository) PurgeExpiredResetCodes(ctx context.Context, now time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Where("reset_code_expires_at IS NOT NULL AND reset_code_expires_at < ?", now).
		Updates(map[string]interface{}{
			"reset_code":            nil,
			"reset_code_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

// AdminEmails lists active superusers and holders of the Admin role.
func (r *Repository) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := database.Conn(ctx, r.db).Model(&accountDatamodel.Account{}).
		Joins("LEFT JOIN roles ON roles.id = accounts.role_id").
		Where("accounts.is_active = ?", true).
		Where("accounts.is_superuser = ? OR roles.name = ?", true, account.RoleAdmin).
		Order("accounts.email ASC").
		Pluck("accounts.email", &emails).Error
	return emails, err
}

// CreateSuperuser inserts a staff superuser holding the Admin role.
func (r *Repository) CreateSuperuser(ctx context.Context, acc *accountDatamodel.Account) error {
	acc.IsStaff = true
	acc.IsSuperuser = true
	acc.IsActive = true
	return r.Create(ctx, acc)
}
