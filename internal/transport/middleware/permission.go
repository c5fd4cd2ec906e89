package middleware

import (
	"net/http"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/auth"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/pkg/logger"
)

// Permissions guards routes with an auth.Authorizer. It runs after
// Auth.Authenticate.
type Permissions struct {
	*transport.BaseHandler
	authorizer auth.Authorizer
}

func NewPermissions(baseHandler *transport.BaseHandler, authorizer auth.Authorizer) *Permissions {
	return &Permissions{BaseHandler: baseHandler, authorizer: authorizer}
}

// Require lets the request through when the principal holds any of
// permissions.
func (p *Permissions) Require(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := internal.UserFromContext(r.Context())
			if err := p.authorizer.Authorize(r.Context(), user, permissions...); err != nil {
				if user != nil {
					logger.From(r.Context()).Warn("access denied: insufficient permissions",
						"required_permissions", permissions,
						"user_permissions", user.Permissions)
				}
				p.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
