package api

import (
	"net/http"

	"github.com/nlefebvre/taskhive/internal/bus"
)

// handleGenerateID mints a new user and announces it on the user-created
// topic so dashboards watching /api/users/stream see it immediately.
func (h *Handler) handleGenerateID(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.CreateUser()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.bus.Publish(bus.TopicUserCreated, *user)

	writeJSON(w, http.StatusOK, user)
}

// handleGetUser returns the user's full graph: direct tasks plus every
// group with its tasks and members. Same shape the subscription pushes, so
// a client can render everything from one call.
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	graph, err := h.store.GetUserGraph(req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}
