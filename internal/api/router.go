package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routes. Everything except /health and the
// register/login endpoints requires an authenticated user.
func NewRouter(d *Deps) http.Handler {
	h := NewHandler(d)
	requireUser := RequireUser(d.Auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/logout", h.logout)
				r.Get("/me", h.me)
				r.Put("/profile", h.updateProfile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/users", h.listUsers)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", h.createTask)
				r.Get("/", h.listTasks)
				r.Get("/{id}", h.getTask)
				r.Put("/{id}", h.updateTask)
				r.Delete("/{id}", h.deleteTask)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.listNotifications)
				r.Get("/unread-count", h.unreadCount)
				r.Put("/{id}/read", h.markNotificationRead)
			})

			if d.Events != nil {
				r.Get("/events", h.streamEvents)
			}
		})
	})

	if d.MCP != nil {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Handle("/mcp", d.MCP)
		})
	}

	return r
}
