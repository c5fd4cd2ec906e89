package middleware

import (
	"context"
	"net/http"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/auth"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/pkg/logger"
)

// Principals validates access tokens and resolves the account behind them.
type Principals interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
	LoadPrincipal(ctx context.Context, userID string) (*internal.User, error)
}

type Auth struct {
	*transport.BaseHandler
	principals Principals
}

func NewAuth(baseHandler *transport.BaseHandler, principals Principals) *Auth {
	return &Auth{BaseHandler: baseHandler, principals: principals}
}

// Authenticate rejects requests without a valid bearer token and puts the
// principal on the context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := a.ExtractTokenFromHeader(r)
		if token == "" {
			a.HandleServiceError(w, r, auth.ErrAuthenticationRequired)
			return
		}

		claims, err := a.principals.ValidateAccessToken(token)
		if err != nil {
			logger.From(r.Context()).Debug("token validation failed", "error", err)
			a.HandleServiceError(w, r, err)
			return
		}

		user, err := a.principals.LoadPrincipal(r.Context(), claims.UserID)
		if err != nil {
			a.HandleServiceError(w, r, err)
			return
		}

		ctx := internal.ContextWithUser(r.Context(), user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
