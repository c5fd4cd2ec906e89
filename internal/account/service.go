package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	accountDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*accountDatamodel.Account, error)
	List(ctx context.Context, filter Filter) ([]*accountDatamodel.Account, int64, error)
	UpdateRole(ctx context.Context, id string, roleID int64) error
	References(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error

	ListRoles(ctx context.Context) ([]*accountDatamodel.Role, error)
	GetRole(ctx context.Context, id int64) (*accountDatamodel.Role, error)
	GetRoleByName(ctx context.Context, name string) (*accountDatamodel.Role, error)
	CreateRole(ctx context.Context, role *accountDatamodel.Role) error
	SaveRole(ctx context.Context, role *accountDatamodel.Role) error
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]*accountDatamodel.Permission, error)
	PermissionsByCode(ctx context.Context, codes []string) ([]accountDatamodel.Permission, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, tx Transactor, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if acc == nil {
		return nil, internal.ErrAccountNotFound
	}
	return FromDataModel(acc), nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Account, int64, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]*Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, total, nil
}

// ListByRole lists the accounts holding the named role.
func (s *Service) ListByRole(ctx context.Context, roleName string, limit, offset int) ([]*Account, int64, error) {
	return s.List(ctx, Filter{RoleName: roleName, Limit: limit, Offset: offset})
}

func (s *Service) AssignRole(ctx context.Context, accountID string, dto AssignRoleDTO) (*Account, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	role, err := s.repo.GetRole(ctx, dto.RoleID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	if role == nil {
		return nil, internal.ErrRoleNotFound
	}

	acc, err := s.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, accountID, role.ID); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	acc.RoleID = &role.ID
	acc.RoleName = role.Name

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeRoleAssigned, "account", accountID, map[string]interface{}{
		"role": role.Name,
	}))
	s.logger.Info("role assigned", "account_id", accountID, "role", role.Name)
	return acc, nil
}

// Delete removes an account unless it still validates pickups, handles
// declarations or owns shipments.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	if actor := internal.UserIDFromContext(ctx); actor == accountID {
		return internal.ErrAccountProtected
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.repo.GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if acc == nil {
			return internal.ErrAccountNotFound
		}

		refs, err := s.repo.References(ctx, accountID)
		if err != nil {
			return fmt.Errorf("count account references: %w", err)
		}
		if refs > 0 {
			return internal.ErrAccountProtected
		}

		return s.repo.Delete(ctx, accountID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeAccountDeleted, "account", accountID, nil))
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]*Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, RoleFromDataModel(row))
	}
	return out, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	if role == nil {
		return nil, internal.ErrRoleNotFound
	}
	return RoleFromDataModel(role), nil
}

func (s *Service) CreateRole(ctx context.Context, dto RoleDTO) (*Role, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	perms, err := s.resolvePermissions(ctx, dto.Permissions)
	if err != nil {
		return nil, err
	}

	role := &accountDatamodel.Role{
		Name:        strings.TrimSpace(dto.Name),
		Description: dto.Description,
		Permissions: perms,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, internal.ErrDuplicateRole
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeRoleChanged, "role", fmt.Sprint(role.ID), map[string]interface{}{
		"operation":   "create",
		"name":        role.Name,
		"permissions": dto.Permissions,
	}))
	return RoleFromDataModel(role), nil
}

func (s *Service) UpdateRole(ctx context.Context, id int64, dto RoleDTO) (*Role, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	var updated *accountDatamodel.Role
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		role, err := s.repo.GetRole(ctx, id)
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		if role == nil {
			return internal.ErrRoleNotFound
		}

		perms, err := s.resolvePermissions(ctx, dto.Permissions)
		if err != nil {
			return err
		}

		role.Name = strings.TrimSpace(dto.Name)
		role.Description = dto.Description
		role.Permissions = perms
		if err := s.repo.SaveRole(ctx, role); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrDuplicateRole
			}
			return fmt.Errorf("save role: %w", err)
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeRoleChanged, "role", fmt.Sprint(id), map[string]interface{}{
		"operation":   "update",
		"name":        updated.Name,
		"permissions": dto.Permissions,
	}))
	return RoleFromDataModel(updated), nil
}

func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		role, err := s.repo.GetRole(ctx, id)
		if err != nil {
			return fmt.Errorf("get role: %w", err)
		}
		if role == nil {
			return internal.ErrRoleNotFound
		}
		return s.repo.DeleteRole(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeRoleChanged, "role", fmt.Sprint(id), map[string]interface{}{
		"operation": "delete",
	}))
	return nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	rows, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	out := make([]*Permission, 0, len(rows))
	for _, row := range rows {
		out = append(out, PermissionFromDataModel(row))
	}
	return out, nil
}

// resolvePermissions fails on the first unknown code.
func (s *Service) resolvePermissions(ctx context.Context, codes []string) ([]accountDatamodel.Permission, error) {
	perms, err := s.repo.PermissionsByCode(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	known := make(map[string]bool, len(perms))
	for _, p := range perms {
		known[p.Code] = true
	}
	for _, code := range codes {
		if !known[code] {
			return nil, internal.NewValidationFieldError("permissions", fmt.Sprintf("unknown permission %q", code), internal.ErrCodeValidationFailed)
		}
	}
	return perms, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", ev.EventType(), "error", err)
	}
}
