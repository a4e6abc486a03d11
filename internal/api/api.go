// Package api exposes the HTTP surface: user/task/group CRUD, the place
// search proxy, and the streaming subscription gateway. Handlers translate
// JSON bodies into store calls; the only logic beyond pass-through
// persistence is kicking the mutation notifier after group-scoped writes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nlefebvre/taskhive/internal/bus"
	"github.com/nlefebvre/taskhive/internal/notify"
	"github.com/nlefebvre/taskhive/internal/places"
	"github.com/nlefebvre/taskhive/internal/store"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	store    store.Store
	bus      *bus.Bus
	notifier *notify.Notifier
	places   places.Searcher
}

// NewHandler creates a Handler. places may be nil when no provider is
// configured; the search endpoint then reports the feature unavailable.
func NewHandler(st store.Store, b *bus.Bus, n *notify.Notifier, p places.Searcher) *Handler {
	return &Handler{store: st, bus: b, notifier: n, places: p}
}

// Routes returns the router for the full API surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/api/generate_id", h.handleGenerateID)
	r.Post("/api/get_user", h.handleGetUser)

	r.Post("/api/get_tasks", h.handleGetTasks)
	r.Post("/api/add_task", h.handleAddTask)
	r.Post("/api/complete_task", h.handleCompleteTask)
	r.Post("/api/delete_task", h.handleDeleteTask)

	r.Post("/api/get_groups", h.handleGetGroups)
	r.Post("/api/create_group", h.handleCreateGroup)
	r.Post("/api/join_group", h.handleJoinGroup)

	r.Get("/api/search_location", h.handleSearchLocation)

	r.Get("/api/subscribe/{user_id}", h.handleSubscribe)
	r.Get("/api/users/stream", h.handleUserStream)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store failures onto HTTP statuses: a missing entity
// is the caller's problem, anything else is ours.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	slog.Error("store error", "error", err)
	writeError(w, http.StatusInternalServerError, "storage unavailable")
}
