package serverdb

import (
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Invite statuses. pending is the only non-terminal state.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRevoked  = "revoked"
	InviteStatusExpired  = "expired"
)

// Invite represents a pending or settled workspace invitation.
type Invite struct {
	ID             string
	WorkspaceID    string
	Email          string
	Role           string
	Status         string
	InvitedBy      string
	ExpiresAt      int64
	AcceptedAt     *int64
	AcceptedUserID string
	RevokedAt      *int64
	CreatedAt      int64
	UpdatedAt      int64
}

func hashInviteToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateInvite creates a pending invite and returns it with the plaintext
// token. The token is shown once; only its hash is stored.
func (db *ServerDB) CreateInvite(workspaceID, email, role, invitedBy string, expiresAt int64) (*Invite, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	if !isValidRole(role) {
		return nil, "", fmt.Errorf("invalid role: %s", role)
	}

	token := uuid.NewString()
	now := nowUnix()
	inv := &Invite{
		ID:          NewID(),
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        role,
		Status:      InviteStatusPending,
		InvitedBy:   invitedBy,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.conn.Exec(
		`INSERT INTO invites (id, workspace_id, email, role, status, invited_by, token_hash, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.WorkspaceID, inv.Email, inv.Role, inv.Status, inv.InvitedBy,
		hashInviteToken(token), inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("insert invite: %w", err)
	}
	return inv, token, nil
}

// expirePendingInvites lazily transitions pending invites past their
// expiry to expired, within the given transaction.
func expirePendingInvites(tx *sql.Tx, workspaceID string, now int64) error {
	_, err := tx.Exec(
		`UPDATE invites SET status = 'expired', updated_at = ?
		 WHERE workspace_id = ? AND status = 'pending' AND expires_at <= ?`,
		now, workspaceID, now,
	)
	if err != nil {
		return fmt.Errorf("expire invites: %w", err)
	}
	return nil
}

// ListInvites returns all invites for a workspace, transitioning overdue
// pending invites to expired first.
func (db *ServerDB) ListInvites(workspaceID string) ([]*Invite, error) {
	tx, err := db.beginWrite()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := expirePendingInvites(tx, workspaceID, nowUnix()); err != nil {
		return nil, err
	}

	rows, err := tx.Query(
		`SELECT id, workspace_id, email, role, status, invited_by, expires_at, accepted_at, accepted_user_id, revoked_at, created_at, updated_at
		 FROM invites WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}

	var invites []*Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invites = append(invites, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invites: iterate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return invites, nil
}

func scanInvite(rows *sql.Rows) (*Invite, error) {
	inv := &Invite{}
	var acceptedAt, revokedAt sql.NullInt64
	var acceptedUserID sql.NullString
	if err := rows.Scan(&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy,
		&inv.ExpiresAt, &acceptedAt, &acceptedUserID, &revokedAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Int64
	}
	if revokedAt.Valid {
		inv.RevokedAt = &revokedAt.Int64
	}
	inv.AcceptedUserID = acceptedUserID.String
	return inv, nil
}

// RevokeInvite transitions a pending invite to revoked. Revoking a
// settled invite is a no-op.
func (db *ServerDB) RevokeInvite(inviteID string) error {
	now := nowUnix()
	_, err := db.conn.Exec(
		`UPDATE invites SET status = 'revoked', revoked_at = ?, updated_at = ? WHERE id = ? AND status = 'pending'`,
		now, now, inviteID,
	)
	if err != nil {
		return fmt.Errorf("revoke invite: %w", err)
	}
	return nil
}

// ConsumeInvite accepts the oldest pending invite for (workspace, email)
// on behalf of userID. The whole state machine runs in one transaction:
// lazy expiry, status and token checks, membership upsert (an existing
// member's role is overwritten), and activation of the invited workspace.
func (db *ServerDB) ConsumeInvite(workspaceID, email, token, userID string) error {
	email = normalizeEmail(email)
	now := nowUnix()

	tx, err := db.beginWrite()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := expirePendingInvites(tx, workspaceID, now); err != nil {
		return err
	}

	var inviteID, status, role, tokenHash string
	err = tx.QueryRow(
		`SELECT id, status, role, token_hash FROM invites
		 WHERE workspace_id = ? AND email = ?
		 ORDER BY CASE status WHEN 'pending' THEN 0 ELSE 1 END, created_at
		 LIMIT 1`,
		workspaceID, email,
	).Scan(&inviteID, &status, &role, &tokenHash)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find invite: %w", err)
	}

	switch status {
	case InviteStatusExpired:
		return ErrInviteExpired
	case InviteStatusAccepted:
		return ErrInviteAlreadyUsed
	case InviteStatusRevoked:
		return ErrInviteRevoked
	}

	if subtle.ConstantTimeCompare([]byte(tokenHash), []byte(hashInviteToken(token))) != 1 {
		return ErrInviteTokenMismatch
	}

	if _, err := tx.Exec(
		`UPDATE invites SET status = 'accepted', accepted_at = ?, accepted_user_id = ?, updated_at = ? WHERE id = ?`,
		now, userID, now, inviteID,
	); err != nil {
		return fmt.Errorf("accept invite: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(workspace_id, user_id) DO UPDATE SET role = excluded.role`,
		NewID(), workspaceID, userID, role, now,
	); err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}

	if _, err := tx.Exec(`UPDATE users SET active_workspace_id = ? WHERE id = ?`, workspaceID, userID); err != nil {
		return fmt.Errorf("set active workspace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
