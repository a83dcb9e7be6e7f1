package controllers

import (
	"net/http"

	"github.com/angelmondragon/portal/api/middleware"
	"github.com/angelmondragon/portal/api/responses"
	"github.com/angelmondragon/portal/pkg/logger"
)

type userView struct {
	Username string
	UserID   string
}

func Communities(renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		render(ctx, logg, w, renderer, http.StatusOK, "communities", userView{
			Username: middleware.UsernameFromContext(ctx),
		})
	}
}

func UserSettings(renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		render(ctx, logg, w, renderer, http.StatusOK, "user-settings", userView{
			Username: middleware.UsernameFromContext(ctx),
			UserID:   middleware.UserIDFromContext(ctx),
		})
	}
}

// GetUsername returns the signed-in username as {"username": "..."}.
func GetUsername() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, map[string]string{
			"username": middleware.UsernameFromContext(r.Context()),
		})
	}
}

// Landing serves "/" for the tenant: its landing view when it has one,
// otherwise a redirect to /communities.
func Landing(renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenant, ok := middleware.TenantFromContext(ctx)
		if !ok || tenant.Landing == "" {
			http.Redirect(w, r, "/communities", http.StatusFound)
			return
		}
		render(ctx, logg, w, renderer, http.StatusOK, tenant.Landing, nil)
	}
}
