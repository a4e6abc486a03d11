package api

import (
	"net/http"

	"github.com/nlefebvre/taskhive/internal/store"
)

type taskBody struct {
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Vicinity    string   `json:"vicinity"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description"`
}

func (h *Handler) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tasks, err := h.store.ListUserTasks(req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleAddTask creates a task owned by exactly one of a user (personal) or
// a group (shared). Group-scoped creates trigger the notifier; personal ones
// never do.
func (h *Handler) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string   `json:"user_id"`
		GroupID string   `json:"group_id"`
		Task    taskBody `json:"task"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Task.Name == "" {
		writeError(w, http.StatusBadRequest, "task.name is required")
		return
	}
	if (req.UserID == "") == (req.GroupID == "") {
		writeError(w, http.StatusBadRequest, "exactly one of user_id or group_id is required")
		return
	}

	// Reject unknown owners up front; the tasks table doesn't say which
	// reference was bad.
	if req.UserID != "" {
		if _, err := h.store.GetUser(req.UserID); err != nil {
			writeStoreError(w, err)
			return
		}
	} else {
		if _, err := h.store.GetGroup(req.GroupID); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	task := &store.TaskRecord{
		Name:        req.Task.Name,
		Location:    req.Task.Location,
		Vicinity:    req.Task.Vicinity,
		Latitude:    req.Task.Latitude,
		Longitude:   req.Task.Longitude,
		Description: req.Task.Description,
		UserID:      req.UserID,
		GroupID:     req.GroupID,
	}
	if err := h.store.CreateTask(task); err != nil {
		writeStoreError(w, err)
		return
	}

	h.notifier.Notify(task.GroupID)

	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := decode(r, &req); err != nil || req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	task, err := h.store.GetTask(req.TaskID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	task.Completed = true
	if err := h.store.UpdateTask(task); err != nil {
		writeStoreError(w, err)
		return
	}

	h.notifier.Notify(task.GroupID)

	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := decode(r, &req); err != nil || req.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	// Fetch first: the group reference is gone once the row is deleted,
	// and members still need to hear about the removal.
	task, err := h.store.GetTask(req.TaskID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := h.store.DeleteTask(task.ID); err != nil {
		writeStoreError(w, err)
		return
	}

	h.notifier.Notify(task.GroupID)

	writeJSON(w, http.StatusOK, task)
}
