package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// defaultInviteTTL is used when the create request omits expires_at.
const defaultInviteTTL = 7 * 24 * time.Hour

// InviteResponse is the JSON representation of an invite. The token is
// only present in the create response.
type InviteResponse struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	InvitedBy   string `json:"invited_by"`
	ExpiresAt   int64  `json:"expires_at"`
	AcceptedAt  *int64 `json:"accepted_at,omitempty"`
	RevokedAt   *int64 `json:"revoked_at,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	Token       string `json:"token,omitempty"`
}

// CreateInviteRequest is the JSON body for POST /v1/workspaces/{id}/invites.
type CreateInviteRequest struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// AcceptInviteRequest is the JSON body for POST /v1/workspaces/{id}/invites/accept.
type AcceptInviteRequest struct {
	Token string `json:"token"`
}

// handleListInvites handles GET /v1/workspaces/{id}/invites.
func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.store.ListInvites(r.PathValue("id"))
	if err != nil {
		logFor(r.Context()).Error("list invites", "err", err)
		writeStoreError(w, err)
		return
	}

	resp := make([]InviteResponse, 0, len(invites))
	for _, inv := range invites {
		resp = append(resp, InviteResponse{
			ID:          inv.ID,
			WorkspaceID: inv.WorkspaceID,
			Email:       inv.Email,
			Role:        inv.Role,
			Status:      inv.Status,
			InvitedBy:   inv.InvitedBy,
			ExpiresAt:   inv.ExpiresAt,
			AcceptedAt:  inv.AcceptedAt,
			RevokedAt:   inv.RevokedAt,
			CreatedAt:   inv.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateInvite handles POST /v1/workspaces/{id}/invites.
func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Email == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "email and role are required")
		return
	}
	expiresAt := req.ExpiresAt
	if expiresAt == 0 {
		expiresAt = time.Now().Add(defaultInviteTTL).Unix()
	}

	inv, token, err := s.store.CreateInvite(r.PathValue("id"), req.Email, req.Role, user.UserID, expiresAt)
	if err != nil {
		logFor(r.Context()).Error("create invite", "err", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, InviteResponse{
		ID:          inv.ID,
		WorkspaceID: inv.WorkspaceID,
		Email:       inv.Email,
		Role:        inv.Role,
		Status:      inv.Status,
		InvitedBy:   inv.InvitedBy,
		ExpiresAt:   inv.ExpiresAt,
		CreatedAt:   inv.CreatedAt,
		Token:       token,
	})
}

// handleRevokeInvite handles POST /v1/workspaces/{id}/invites/{inviteID}/revoke.
func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RevokeInvite(r.PathValue("inviteID")); err != nil {
		logFor(r.Context()).Error("revoke invite", "err", err)
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// handleAcceptInvite handles POST /v1/workspaces/{id}/invites/accept.
// The caller's email is taken from the resolved identity, never the body.
func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r.Context())

	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "token is required")
		return
	}

	if err := s.store.ConsumeInvite(r.PathValue("id"), user.Email, req.Token, user.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
