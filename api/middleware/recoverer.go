package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/portal/api/responses"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
					}
					responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"), "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
