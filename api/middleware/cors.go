package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/wishwall/wishwall-backend/pkg/config"
)

// CORS applies the configured origin list. A "*" entry opens the API to any
// origin and turns credentials off, since browsers refuse the combination.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader, "X-Requested-With"},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}).Handler
}
