package account

import "time"

type Account struct {
	ID                 string     `gorm:"column:id;primaryKey;size:36"`
	Email              string     `gorm:"column:email;uniqueIndex;not null"`
	FirstName          string     `gorm:"column:first_name"`
	LastName           string     `gorm:"column:last_name"`
	Phone              *string    `gorm:"column:phone;uniqueIndex"`
	RoleID             *int64     `gorm:"column:role_id;index"`
	Role               *Role      `gorm:"foreignKey:RoleID"`
	PasswordHash       string     `gorm:"column:password_hash;not null"`
	IsActive           bool       `gorm:"column:is_active;not null"`
	IsStaff            bool       `gorm:"column:is_staff;not null"`
	IsSuperuser        bool       `gorm:"column:is_superuser;not null"`
	TwoFactorEnabled   bool       `gorm:"column:two_factor_enabled;not null"`
	ResetCode          *string    `gorm:"column:reset_code;size:6"`
	ResetCodeExpiresAt *time.Time `gorm:"column:reset_code_expires_at"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}

type Role struct {
	ID          int64        `gorm:"primaryKey"`
	Name        string       `gorm:"column:name;uniqueIndex;not null"`
	Description string       `gorm:"column:description"`
	Permissions []Permission `gorm:"many2many:role_permissions;"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

type Permission struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	Label     string    `gorm:"column:label;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}
