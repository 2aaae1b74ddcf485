package serverdb

import "errors"

// Sentinel errors for authorization and lifecycle failures. Callers match
// with errors.Is; the HTTP layer maps each to a stable error code.
var (
	ErrNotFound       = errors.New("not_found")
	ErrNotMember      = errors.New("not_member")
	ErrForbiddenRole  = errors.New("forbidden_role")
	ErrForbiddenOwner = errors.New("forbidden_owner")

	ErrInviteExpired       = errors.New("expired")
	ErrInviteRevoked       = errors.New("revoked")
	ErrInviteAlreadyUsed   = errors.New("already_used")
	ErrInviteTokenMismatch = errors.New("token_mismatch")
)
