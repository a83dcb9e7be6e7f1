package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/portal/api/middleware"
	"github.com/angelmondragon/portal/api/responses"
	"github.com/angelmondragon/portal/internal/views"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

// ViewRenderer executes a named view for a tenant namespace.
type ViewRenderer interface {
	Render(w http.ResponseWriter, status int, namespace, name string, data any) error
}

func render(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, renderer ViewRenderer, status int, name string, data any) {
	namespace := views.SharedNamespace
	if tenant, ok := middleware.TenantFromContext(ctx); ok && tenant.ViewNamespace != "" {
		namespace = tenant.ViewNamespace
	}
	if err := renderer.Render(w, status, namespace, name, data); err != nil {
		responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render view"), "Internal Server Error")
	}
}
