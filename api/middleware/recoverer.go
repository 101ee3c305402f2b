package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wishwall/wishwall-backend/api/responses"
	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
	"github.com/wishwall/wishwall-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can drop the connection silently.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				cause, isErr := rec.(error)
				if isErr && errors.Is(cause, http.ErrAbortHandler) {
					panic(rec)
				}
				if !isErr {
					cause = fmt.Errorf("%v", rec)
				}

				// WriteError logs 5xx responses, so the fields ride on ctx.
				ctx := logg.WithFields(r.Context(), map[string]any{
					"panic":  true,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "panic recovered"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
