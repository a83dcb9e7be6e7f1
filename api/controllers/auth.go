package controllers

import (
	"net/http"

	"github.com/angelmondragon/portal/api/middleware"
	"github.com/angelmondragon/portal/api/responses"
	"github.com/angelmondragon/portal/api/validators"
	"github.com/angelmondragon/portal/internal/auth"
	"github.com/angelmondragon/portal/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

func LoginPage(renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(r.Context(), logg, w, renderer, http.StatusOK, "login", nil)
	}
}

// LoginSubmit checks credentials and opens a session. Every credential
// failure produces the same 401 body.
func LoginSubmit(svc auth.Service, sessions SessionEstablisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body auth.LoginRequest
		if err := validators.DecodeBody(r, &body); err != nil {
			responses.WriteErrorText(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, auth.InvalidCredentialsMessage), "")
			return
		}

		user, err := svc.Login(ctx, body)
		if err != nil {
			responses.WriteErrorText(ctx, logg, w, err, "Error logging in.")
			return
		}

		data := session.Data{Username: user.Username, UserID: user.UserID}
		if tenant, ok := middleware.TenantFromContext(ctx); ok {
			data.Tenant = tenant.Name
		}
		if err := sessions.Establish(ctx, w, r, data); err != nil {
			responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "establish session"), "Error logging in.")
			return
		}
		if logg != nil {
			logg.Info(logg.WithUsername(ctx, user.Username), "login.succeeded")
		}
		http.Redirect(w, r, "/communities", http.StatusFound)
	}
}

// Logout ends the session, if any, and always lands on /login.
func Logout(sessions SessionEstablisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := sessions.Destroy(ctx, w, r); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "logout.destroy_failed")
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}
