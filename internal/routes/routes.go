package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/flags-survey-backend/internal/handlers"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Submit *handlers.SubmitHandler
}

// SetupRoutes registers the API. Everything except /health runs with the
// visitor's session loaded.
func SetupRoutes(r chi.Router, sessions *session.Manager, h Handlers) {
	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		// OAuth round-trip
		r.Get("/login", h.Auth.Login)
		r.Get("/callback", h.Auth.Callback)
		r.Post("/logout", h.Auth.Logout)

		r.Get("/user", h.User.GetUser)
		r.Post("/submit", h.Submit.Submit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Not found"}`))
	})
}

// Registered lists the routes for the startup log.
var Registered = []string{
	"GET  /health",
	"GET  /login",
	"GET  /callback",
	"POST /logout",
	"GET  /user",
	"POST /submit",
}
