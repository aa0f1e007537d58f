package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/taskhub/internal/auth"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"notifications": list})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.CountUnread(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"count": n})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"notification": n})
}

// streamEvents streams task and notification events to the caller.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	h.events.Serve(w, r, auth.UserID(r.Context()))
}
