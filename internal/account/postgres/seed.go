package postgres

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/transit241/port-logistics/internal/account"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/database"
)

// EnsureDefaults creates the built-in permissions and roles that are
// missing. Existing rows are left untouched.
func (r *AccountRepository) EnsureDefaults(ctx context.Context) (map[string]int64, error) {
	conn := database.Conn(ctx, r.db)

	byCode := make(map[string]accountDatamodel.Permission, len(account.AllPermissions))
	for _, code := range account.AllPermissions {
		perm := accountDatamodel.Permission{Code: code, Label: PermissionLabel(code)}
		if err := conn.Where(accountDatamodel.Permission{Code: code}).FirstOrCreate(&perm).Error; err != nil {
			return nil, fmt.Errorf("ensure permission %s: %w", code, err)
		}
		byCode[code] = perm
	}

	roleIDs := make(map[string]int64, len(account.DefaultRoles))
	for name, codes := range account.DefaultRoles {
		role := accountDatamodel.Role{Name: name, Description: account.RoleDescriptions[name]}
		if err := conn.Where(accountDatamodel.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return nil, fmt.Errorf("ensure role %s: %w", name, err)
		}

		perms := make([]accountDatamodel.Permission, 0, len(codes))
		for _, code := range codes {
			perms = append(perms, byCode[code])
		}
		if err := conn.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return nil, fmt.Errorf("grant permissions to %s: %w", name, err)
		}
		roleIDs[name] = role.ID
	}

	return roleIDs, nil
}

// PermissionLabel turns "logistics.update_statut" into "Logistics: Update Statut".
func PermissionLabel(code string) string {
	caser := cases.Title(language.English)
	app, action, found := strings.Cut(code, ".")
	if !found {
		return caser.String(strings.ReplaceAll(code, "_", " "))
	}
	return caser.String(app) + ": " + caser.String(strings.ReplaceAll(action, "_", " "))
}
