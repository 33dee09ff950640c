package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/billing-bridge/api/responses"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
)

// Recoverer turns a handler panic into a 500 carrying only the public internal error message.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("recovered panic: %v", rec), "")
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"method": r.Method,
						"route":  r.URL.Path,
					})
				}
				responses.WriteError(ctx, logg, w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
