package api

import (
	"net/http"
)

func (h *Handler) handleGetGroups(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if _, err := h.store.GetUser(req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}

	groups, err := h.store.ListUserGroups(req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupName string `json:"group_name"`
		UserID    string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil || req.GroupName == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "group_name and user_id are required")
		return
	}

	group, err := h.store.CreateGroup(req.GroupName, req.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// handleJoinGroup adds a member. Membership changes every member's snapshot
// (the member list is part of it), so the group is notified like a task
// mutation.
func (h *Handler) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		GroupID string `json:"group_id"`
	}
	if err := decode(r, &req); err != nil || req.UserID == "" || req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "user_id and group_id are required")
		return
	}

	if err := h.store.AddMember(req.GroupID, req.UserID); err != nil {
		writeStoreError(w, err)
		return
	}

	h.notifier.Notify(req.GroupID)

	graph, err := h.store.GetGroupGraph(req.GroupID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}
