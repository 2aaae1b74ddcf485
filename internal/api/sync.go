package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	syncgw "github.com/loomapp/loom/internal/sync"
)

// PushRequest is the JSON body for POST /v1/workspaces/{id}/sync/push.
type PushRequest struct {
	Ops []syncgw.PendingOp `json:"ops"`
}

// CursorRequest is the JSON body for POST /v1/workspaces/{id}/sync/cursor.
type CursorRequest struct {
	DeviceID string `json:"device_id"`
	Version  int64  `json:"version"`
}

// handleSyncPush handles POST /v1/workspaces/{id}/sync/push.
func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}

	result, err := s.gateway.Push(r.PathValue("id"), req.Ops)
	if err != nil {
		logFor(r.Context()).Error("push", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "push failed")
		return
	}

	var accepted int64
	for _, res := range result.Results {
		if res.Success {
			accepted++
		}
	}
	s.metrics.RecordPushOps(accepted)

	writeJSON(w, http.StatusOK, result)
}

// handleSyncPull handles GET /v1/workspaces/{id}/sync/pull.
// Query params: cursor (int), limit (int), tables (comma-separated).
func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var cursor int64
	if v := q.Get("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid cursor")
			return
		}
		cursor = n
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var tables []string
	if v := q.Get("tables"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	}

	result, err := s.gateway.Pull(r.PathValue("id"), cursor, limit, tables)
	if err != nil {
		logFor(r.Context()).Error("pull", "err", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	s.metrics.RecordPullRequest()

	writeJSON(w, http.StatusOK, result)
}

// handleSyncCursor handles POST /v1/workspaces/{id}/sync/cursor.
func (s *Server) handleSyncCursor(w http.ResponseWriter, r *http.Request) {
	var req CursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid json body")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "device_id is required")
		return
	}
	if req.Version < 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "version must be non-negative")
		return
	}

	workspaceID := r.PathValue("id")
	if err := s.gateway.UpdateCursor(workspaceID, req.DeviceID, req.Version); err != nil {
		logFor(r.Context()).Error("update cursor", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "cursor update failed")
		return
	}

	cursor, err := s.gateway.GetCursor(workspaceID, req.DeviceID)
	if err != nil {
		logFor(r.Context()).Error("get cursor", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "cursor read failed")
		return
	}
	writeJSON(w, http.StatusOK, cursor)
}

// handleSyncStatus handles GET /v1/workspaces/{id}/sync/status.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.gateway.Status(r.PathValue("id"))
	if err != nil {
		logFor(r.Context()).Error("sync status", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "status failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
