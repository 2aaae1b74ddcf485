package api

import (
	"encoding/json"
	"net/http"
)

// WorkspaceResponse is the JSON representation of a workspace listing row.
type WorkspaceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
	IsActive    bool   `json:"is_active"`
}

// CreateWorkspaceRequest is the JSON body for POST /v1/workspaces.
type CreateWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateWorkspaceRequest is the JSON body for PATCH /v1/workspaces/{id}.
type UpdateWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleListWorkspaces handles GET /v1/workspaces.
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	listings, err := s.store.ListUserWorkspaces(user.UserID)
	if err != nil {
		logFor(r.Context()).Error("list workspaces", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]WorkspaceResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, WorkspaceResponse{
			ID:          l.ID,
			Name:        l.Name,
			Description: l.Description,
			Role:        l.Role,
			CreatedAt:   l.CreatedAt,
			IsActive:    l.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateWorkspace handles POST /v1/workspaces.
func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}

	id, err := s.store.CreateWorkspace(user.UserID, req.Name, req.Description)
	if err != nil {
		logFor(r.Context()).Error("create workspace", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "name": req.Name})
}

// handleDefaultWorkspace handles GET /v1/workspaces/default.
func (s *Server) handleDefaultWorkspace(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	id, name, err := s.store.GetOrCreateDefaultWorkspace(user.UserID)
	if err != nil {
		logFor(r.Context()).Error("default workspace", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "name": name})
}

// handleUpdateWorkspace handles PATCH /v1/workspaces/{id}.
func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	workspaceID := r.PathValue("id")

	var req UpdateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "name is required")
		return
	}

	if err := s.store.UpdateWorkspace(user.UserID, workspaceID, req.Name, req.Description); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleRemoveWorkspace handles DELETE /v1/workspaces/{id}.
func (s *Server) handleRemoveWorkspace(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	workspaceID := r.PathValue("id")

	if err := s.store.RemoveWorkspace(user.UserID, workspaceID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleActivateWorkspace handles POST /v1/workspaces/{id}/activate.
func (s *Server) handleActivateWorkspace(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())
	workspaceID := r.PathValue("id")

	if err := s.store.SetActiveWorkspace(user.UserID, workspaceID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// handleListSettings handles GET /v1/workspaces/{id}/settings.
func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.ListWorkspaceSettings(r.PathValue("id"))
	if err != nil {
		logFor(r.Context()).Error("list settings", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleGetSetting handles GET /v1/workspaces/{id}/settings/{key}.
func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	value, found, err := s.store.GetWorkspaceSetting(r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		logFor(r.Context()).Error("get setting", "err", err)
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "setting not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": r.PathValue("key"), "value": value})
}

// handleSetSetting handles PUT /v1/workspaces/{id}/settings/{key}.
func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}

	if err := s.store.SetWorkspaceSetting(r.PathValue("id"), r.PathValue("key"), req.Value); err != nil {
		logFor(r.Context()).Error("set setting", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}
