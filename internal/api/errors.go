package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/loomapp/loom/internal/serverdb"
)

// Error code constants for structured API error responses.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeNotMember      = "not_member"
	ErrCodeForbiddenRole  = "forbidden_role"
	ErrCodeForbiddenOwner = "forbidden_owner"
	ErrCodeExpired        = "expired"
	ErrCodeRevoked        = "revoked"
	ErrCodeAlreadyUsed    = "already_used"
	ErrCodeTokenMismatch  = "token_mismatch"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// writeStoreError maps workspace store sentinels to stable HTTP codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, serverdb.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, serverdb.ErrNotMember):
		writeError(w, http.StatusForbidden, ErrCodeNotMember, err.Error())
	case errors.Is(err, serverdb.ErrForbiddenRole):
		writeError(w, http.StatusForbidden, ErrCodeForbiddenRole, err.Error())
	case errors.Is(err, serverdb.ErrForbiddenOwner):
		writeError(w, http.StatusForbidden, ErrCodeForbiddenOwner, err.Error())
	case errors.Is(err, serverdb.ErrInviteExpired):
		writeError(w, http.StatusGone, ErrCodeExpired, err.Error())
	case errors.Is(err, serverdb.ErrInviteRevoked):
		writeError(w, http.StatusGone, ErrCodeRevoked, err.Error())
	case errors.Is(err, serverdb.ErrInviteAlreadyUsed):
		writeError(w, http.StatusConflict, ErrCodeAlreadyUsed, err.Error())
	case errors.Is(err, serverdb.ErrInviteTokenMismatch):
		writeError(w, http.StatusForbidden, ErrCodeTokenMismatch, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
