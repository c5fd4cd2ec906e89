package auth

import (
	"context"

	"github.com/transit241/port-logistics/internal"
)

// Authorizer decides whether principal may exercise at least one of
// permissions. An empty permission list only requires authentication.
type Authorizer interface {
	Authorize(ctx context.Context, principal *internal.User, permissions ...string) error
}

// RoleAuthorizer grants what the principal's role grants.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, principal *internal.User, permissions ...string) error {
	if principal == nil {
		return ErrAuthenticationRequired
	}
	if len(permissions) == 0 || principal.HasAnyPermission(permissions...) {
		return nil
	}
	return internal.ErrForbidden
}

// SuperuserBypass lets staff and superusers through and defers everyone
// else to Next.
type SuperuserBypass struct {
	Next Authorizer
}

func (a SuperuserBypass) Authorize(ctx context.Context, principal *internal.User, permissions ...string) error {
	if principal == nil {
		return ErrAuthenticationRequired
	}
	if principal.IsSuperuser || principal.IsStaff {
		return nil
	}
	return a.Next.Authorize(ctx, principal, permissions...)
}

// NewAuthorizer returns the chain used at the HTTP boundary.
func NewAuthorizer() Authorizer {
	return SuperuserBypass{Next: RoleAuthorizer{}}
}
