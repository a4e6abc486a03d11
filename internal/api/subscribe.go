package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nlefebvre/taskhive/internal/bus"
	"github.com/nlefebvre/taskhive/internal/notify"
	"github.com/nlefebvre/taskhive/internal/store"
)

const keepAliveInterval = 30 * time.Second

// handleSubscribe is the streaming subscription gateway. It opens a
// server-sent-events stream for one user: first a one-shot "snapshot" frame
// with the user's current graph (so a fresh client isn't blank until the
// next mutation), then an "update" frame for every event on the shared
// update topic addressed to this user.
//
// The connection lives until the client disconnects or the server shuts
// down; the bus subscription is released on the way out. Reconnection is
// the client's job.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	graph, err := h.store.GetUserGraph(userID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Attach before sending the initial snapshot: a mutation landing in
	// between is then delivered as a regular update instead of being lost.
	sub := h.bus.Subscribe(bus.TopicTaskUpdates, notify.ForRecipient(userID))
	defer sub.Close()

	startSSE(w)
	if err := writeSSE(w, "snapshot", graph); err != nil {
		return
	}
	flusher.Flush()

	slog.Info("subscription opened", "user_id", userID)
	defer slog.Info("subscription closed", "user_id", userID)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case payload, ok := <-sub.Events():
			if !ok {
				return
			}
			ev, ok := payload.(notify.UpdateEvent)
			if !ok {
				continue
			}
			if err := writeSSE(w, "update", ev.Snapshot); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleUserStream streams every newly minted user id. Single global feed,
// no per-recipient filtering.
func (h *Handler) handleUserStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.bus.Subscribe(bus.TopicUserCreated, nil)
	defer sub.Close()

	startSSE(w)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case payload, ok := <-sub.Events():
			if !ok {
				return
			}
			user, ok := payload.(store.UserRecord)
			if !ok {
				continue
			}
			if err := writeSSE(w, "user_created", user); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func startSSE(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSE(w http.ResponseWriter, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
