package api

import (
	"encoding/json"
	"net/http"
)

// MemberResponse is the JSON representation of a membership.
type MemberResponse struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
}

// UpsertMemberRequest is the JSON body for POST /v1/workspaces/{id}/members.
type UpsertMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// handleListMembers handles GET /v1/workspaces/{id}/members.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.ListMembers(r.PathValue("id"))
	if err != nil {
		logFor(r.Context()).Error("list members", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, MemberResponse{
			WorkspaceID: m.WorkspaceID,
			UserID:      m.UserID,
			Role:        m.Role,
			CreatedAt:   m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUpsertMember handles POST /v1/workspaces/{id}/members.
func (s *Server) handleUpsertMember(w http.ResponseWriter, r *http.Request) {
	var req UpsertMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.UserID == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "user_id and role are required")
		return
	}

	if err := s.store.UpsertMember(r.PathValue("id"), req.UserID, req.Role); err != nil {
		logFor(r.Context()).Error("upsert member", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "member"})
}

// handleSetMemberRole handles PATCH /v1/workspaces/{id}/members/{userID}.
func (s *Server) handleSetMemberRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "role is required")
		return
	}

	if err := s.store.SetMemberRole(r.PathValue("id"), r.PathValue("userID"), req.Role); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleRemoveMember handles DELETE /v1/workspaces/{id}/members/{userID}.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveMember(r.PathValue("id"), r.PathValue("userID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
