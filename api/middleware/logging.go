package middleware

import (
	"net/http"
	"time"

	"github.com/wishwall/wishwall-backend/pkg/logger"
)

// Logging writes one line per request once it completes. Client errors log
// at warn; 5xx responses were already logged by the error writer.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			done := logg.WithFields(ctx, map[string]any{
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case status >= http.StatusInternalServerError:
				logg.Info(done, "request.failed")
			case status >= http.StatusBadRequest:
				logg.Warn(done, "request.rejected")
			default:
				logg.Info(done, "request.complete")
			}
		})
	}
}
