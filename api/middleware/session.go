package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/portal/api/responses"
	"github.com/angelmondragon/portal/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

// SessionLoader exposes the read-only surface of the session manager.
type SessionLoader interface {
	Load(ctx context.Context, r *http.Request) (session.Data, bool, error)
}

// RequireSession redirects anonymous visitors to /login and seeds the
// request context with the authenticated user.
func RequireSession(loader SessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			data, ok, err := loader.Load(ctx, r)
			if err != nil {
				responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session"), "Internal Server Error")
				return
			}
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			ctx = WithUsername(ctx, data.Username)
			ctx = WithUserID(ctx, data.UserID)
			if logg != nil {
				ctx = logg.WithUsername(ctx, data.Username)
				ctx = logg.WithUserID(ctx, data.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
