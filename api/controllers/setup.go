package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/portal/api/middleware"
	"github.com/angelmondragon/portal/api/responses"
	"github.com/angelmondragon/portal/api/validators"
	"github.com/angelmondragon/portal/internal/setup"
	"github.com/angelmondragon/portal/internal/userids"
	"github.com/angelmondragon/portal/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

const maxGameLevelLen = 64

// SessionEstablisher starts and ends browser sessions.
type SessionEstablisher interface {
	Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, data session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

type setupView struct {
	Error     string
	Username  string
	GameLevel string
}

// SetupPage renders the first-run form, or sends finished installs to /login.
func SetupPage(svc setup.Service, renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		done, err := svc.Completed(ctx)
		if err != nil {
			responses.WriteErrorText(ctx, logg, w, err, "Error retrieving setup status.")
			return
		}
		if done {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		render(ctx, logg, w, renderer, http.StatusOK, "setup", setupView{})
	}
}

// SetupSubmit creates the first user, signs them in and opens the portal.
func SetupSubmit(svc setup.Service, sessions SessionEstablisher, renderer ViewRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body setup.Request
		if err := validators.DecodeBody(r, &body); err != nil {
			renderSetupError(ctx, logg, w, renderer, http.StatusBadRequest, "Username and password are required.", body)
			return
		}
		body.GameLevel = validators.SanitizeString(body.GameLevel, maxGameLevelLen)

		user, err := svc.Complete(ctx, body)
		switch {
		case err == nil:
		case errors.Is(err, setup.ErrSetupAlreadyCompleted):
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
			renderSetupError(ctx, logg, w, renderer, http.StatusBadRequest, "Username and password are required.", body)
			return
		case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			renderSetupError(ctx, logg, w, renderer, http.StatusConflict, "That username is already taken.", body)
			return
		case errors.Is(err, userids.ErrIDSpaceExhausted):
			responses.WriteErrorText(ctx, logg, w, err, "Error generating unique user ID.")
			return
		default:
			responses.WriteErrorText(ctx, logg, w, err, "Error creating user.")
			return
		}

		if logg != nil {
			ctx = logg.WithUsername(ctx, user.Username)
			logg.Info(logg.WithUserID(ctx, user.UserID), "setup.completed")
		}

		data := session.Data{Username: user.Username, UserID: user.UserID}
		if tenant, ok := middleware.TenantFromContext(ctx); ok {
			data.Tenant = tenant.Name
		}
		if err := sessions.Establish(ctx, w, r, data); err != nil {
			responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "establish session"), "Error creating session.")
			return
		}
		http.Redirect(w, r, "/communities", http.StatusFound)
	}
}

func renderSetupError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, renderer ViewRenderer, status int, msg string, body setup.Request) {
	render(ctx, logg, w, renderer, status, "setup", setupView{
		Error:     msg,
		Username:  body.Username,
		GameLevel: body.GameLevel,
	})
}
