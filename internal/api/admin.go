package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// AdminResponse is the JSON representation of a deployment admin.
type AdminResponse struct {
	UserID    string `json:"user_id"`
	CreatedAt int64  `json:"created_at"`
	CreatedBy string `json:"created_by,omitempty"`
}

// UserResponse is the JSON representation of a user on the admin surface.
type UserResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email,omitempty"`
	DisplayName       string `json:"display_name,omitempty"`
	ActiveWorkspaceID string `json:"active_workspace_id,omitempty"`
	CreatedAt         int64  `json:"created_at"`
}

// AdminWorkspaceResponse is the JSON representation of a workspace on the
// admin surface, including soft-delete state.
type AdminWorkspaceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerUserID string `json:"owner_user_id"`
	Deleted     bool   `json:"deleted"`
	DeletedAt   *int64 `json:"deleted_at,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// handleListAdmins handles GET /v1/admin/admins.
func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.store.ListAdmins()
	if err != nil {
		logFor(r.Context()).Error("list admins", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]AdminResponse, 0, len(admins))
	for _, a := range admins {
		resp = append(resp, AdminResponse{UserID: a.UserID, CreatedAt: a.CreatedAt, CreatedBy: a.CreatedBy})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGrantAdmin handles POST /v1/admin/admins.
func (s *Server) handleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "user_id is required")
		return
	}

	if err := s.store.GrantAdmin(req.UserID, user.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

// handleRevokeAdmin handles DELETE /v1/admin/admins/{userID}.
func (s *Server) handleRevokeAdmin(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RevokeAdmin(r.PathValue("userID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearchUsers handles GET /v1/admin/users?q=...&limit=...
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	users, err := s.store.SearchUsers(q.Get("q"), limit)
	if err != nil {
		logFor(r.Context()).Error("search users", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{
			ID:                u.ID,
			Email:             u.Email,
			DisplayName:       u.DisplayName,
			ActiveWorkspaceID: u.ActiveWorkspaceID,
			CreatedAt:         u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminListWorkspaces handles GET /v1/admin/workspaces.
// Query params: q, include_deleted, limit, offset.
func (s *Server) handleAdminListWorkspaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, offset := 0, 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid offset")
			return
		}
		offset = n
	}
	includeDeleted := q.Get("include_deleted") == "true"

	workspaces, err := s.store.AdminListWorkspaces(q.Get("q"), includeDeleted, limit, offset)
	if err != nil {
		logFor(r.Context()).Error("admin list workspaces", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]AdminWorkspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		resp = append(resp, AdminWorkspaceResponse{
			ID:          ws.ID,
			Name:        ws.Name,
			Description: ws.Description,
			OwnerUserID: ws.OwnerUserID,
			Deleted:     ws.Deleted,
			DeletedAt:   ws.DeletedAt,
			CreatedAt:   ws.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminGetWorkspace handles GET /v1/admin/workspaces/{id}.
func (s *Server) handleAdminGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.GetWorkspace(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if ws == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "workspace not found")
		return
	}
	writeJSON(w, http.StatusOK, AdminWorkspaceResponse{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		OwnerUserID: ws.OwnerUserID,
		Deleted:     ws.Deleted,
		DeletedAt:   ws.DeletedAt,
		CreatedAt:   ws.CreatedAt,
	})
}

// handleAdminDeleteWorkspace handles DELETE /v1/admin/workspaces/{id}.
func (s *Server) handleAdminDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SoftDeleteWorkspace(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminRestoreWorkspace handles POST /v1/admin/workspaces/{id}/restore.
func (s *Server) handleAdminRestoreWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RestoreWorkspace(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// handleAdminGC handles POST /v1/admin/workspaces/{id}/gc.
// An optional retention_seconds body field overrides the configured window.
func (s *Server) handleAdminGC(w http.ResponseWriter, r *http.Request) {
	retention := s.config.GCRetention

	var req struct {
		RetentionSeconds int64 `json:"retention_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RetentionSeconds > 0 {
		retention = req.RetentionSeconds
	}

	workspaceID := r.PathValue("id")
	changeRows, err := s.gateway.GCChangeLog(workspaceID, retention)
	if err != nil {
		logFor(r.Context()).Error("gc change log", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "gc failed")
		return
	}
	tombstoneRows, err := s.gateway.GCTombstones(workspaceID, retention)
	if err != nil {
		logFor(r.Context()).Error("gc tombstones", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "gc failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"change_log_deleted": changeRows,
		"tombstones_deleted": tombstoneRows,
	})
}
