package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/portal/api/responses"
	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/angelmondragon/portal/pkg/logger"
)

const setupStatusErrorMessage = "Error retrieving setup status."

// SetupChecker reports whether first-run setup has completed.
type SetupChecker interface {
	Completed(ctx context.Context) (bool, error)
}

// SetupGate redirects every request except /setup to /setup until setup
// has completed. The flag is read on each request.
func SetupGate(checker SetupChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			done, err := checker.Completed(ctx)
			if err != nil {
				responses.WriteErrorText(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read setup status"), setupStatusErrorMessage)
				return
			}
			if !done && !isSetupPath(r.URL.Path) {
				http.Redirect(w, r, "/setup", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSetupPath(p string) bool {
	return p == "/setup" || p == "/setup/"
}
