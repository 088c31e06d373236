package mw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser calls from the given origins. An empty list disables
// CORS headers entirely (same-origin only).
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return passthrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Render-Cache"},
		MaxAge:         300,
	})
}
