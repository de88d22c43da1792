package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the survey frontend call the API with its session cookie.
// allowedOrigins is the list of allowed origins (e.g. http://localhost:5173).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
