// Package api exposes taskhub over HTTP: accounts, tasks, notifications and
// the server-sent event stream.
package api

import (
	"net/http"
	"time"

	"github.com/btouchard/taskhub/internal/auth"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/task"
)

// Deps holds the services the HTTP layer calls into.
type Deps struct {
	Auth          *auth.Service
	Tasks         *task.Manager
	Notifications *notify.Dispatcher
	Events        *notify.SSEStream

	// MCP is mounted at /mcp behind the same authentication when non-nil.
	MCP http.Handler

	ExposeErrors bool
	CookieSecure bool
}

// Handler implements the REST endpoints.
type Handler struct {
	auth          *auth.Service
	tasks         *task.Manager
	notifications *notify.Dispatcher
	events        *notify.SSEStream
	exposeErrors  bool
	cookieSecure  bool
}

// NewHandler creates a Handler from deps.
func NewHandler(d *Deps) *Handler {
	return &Handler{
		auth:          d.Auth,
		tasks:         d.Tasks,
		notifications: d.Notifications,
		events:        d.Events,
		exposeErrors:  d.ExposeErrors,
		cookieSecure:  d.CookieSecure,
	}
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.Tokens().TTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
