package account

import (
	"time"

	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
)

const (
	RoleAdmin          = "Admin"
	RolePortAgent      = "AgentPort"
	RoleCustomsOfficer = "Douanier"
	RoleClient         = "Client"
	RoleCarrier        = "Transporteur"
)

// Account is an actor of the platform. The password hash never leaves the
// repository layer.
type Account struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Phone            *string    `json:"phone,omitempty"`
	RoleID           *int64     `json:"role_id,omitempty"`
	RoleName         string     `json:"role,omitempty"`
	IsActive         bool       `json:"is_active"`
	IsStaff          bool       `json:"is_staff"`
	IsSuperuser      bool       `json:"is_superuser"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Permission struct {
	ID    int64  `json:"id"`
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Filter narrows ListAccounts. Zero values match everything.
type Filter struct {
	RoleName string
	Search   string
	Limit    int
	Offset   int
}

func FromDataModel(a *accountDatamodel.Account) *Account {
	acc := &Account{
		ID:               a.ID,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Phone:            a.Phone,
		RoleID:           a.RoleID,
		IsActive:         a.IsActive,
		IsStaff:          a.IsStaff,
		IsSuperuser:      a.IsSuperuser,
		TwoFactorEnabled: a.TwoFactorEnabled,
		LastLoginAt:      a.LastLoginAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.Role != nil {
		acc.RoleName = a.Role.Name
	}
	return acc
}

func RoleFromDataModel(r *accountDatamodel.Role) *Role {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.Code)
	}
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func PermissionFromDataModel(p *accountDatamodel.Permission) *Permission {
	return &Permission{ID: p.ID, Code: p.Code, Label: p.Label}
}
