package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/taskhub/internal/auth"
	"github.com/btouchard/taskhub/internal/task"
)

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var in task.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.tasks.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"task": t})
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	f, s, err := task.ParseListParams(r.URL.Query().Get)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tasks, err := h.tasks.List(r.Context(), f, s)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"task": t})
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var in task.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.tasks.Update(r.Context(), chi.URLParam(r, "id"), in, auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"task": t})
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}
