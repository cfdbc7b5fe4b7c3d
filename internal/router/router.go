// Package router sets up all HTTP routes and middleware chains for the
// Planora API. Read paths are open; uploads and mutations require an
// authenticated, 2FA-verified session.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"planora/internal/handlers"
	"planora/internal/middleware"
	"planora/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, api *handlers.API) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check — no auth, no CSRF.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CSRF)

		// Authentication. Login is rate-limited against brute force.
		r.Route("/auth", func(r chi.Router) {
			limiter := middleware.NewRateLimiter(10, time.Minute)
			r.With(limiter.Middleware).Post("/login", api.Login)
			r.Post("/logout", api.Logout)

			// 2FA — requires auth but NOT completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/2fa/setup", api.TwoFASetup)
				r.Post("/2fa/verify", api.TwoFAVerify)
				r.Get("/me", api.Me)
			})
		})

		// Projects. Reads are open so browsing works without a session;
		// uploads and mutations need a verified session.
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", api.ProjectList)
			r.Get("/{id}", api.ProjectGet)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.Require2FA)
				r.Post("/", api.ProjectCreate)
				r.Post("/{id}/generate", api.ProjectGenerate)
				r.Post("/{id}/regenerate", api.ProjectRegenerate)
				r.Delete("/{id}", api.ProjectDelete)
			})
		})

		// Hosting and render provider management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Get("/hosting", api.HostingConfig)
			r.Get("/render/providers", api.ProviderStatus)
			r.Post("/render/providers", api.ProviderSet)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
