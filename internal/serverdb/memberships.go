package serverdb

import (
	"database/sql"
	"fmt"
)

// Role constants, in decreasing order of privilege.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// roleLevel returns the numeric level for a role (higher = more permissions).
func roleLevel(role string) int {
	switch role {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

func isValidRole(role string) bool {
	return roleLevel(role) > 0
}

// Member represents a user's role in a workspace.
type Member struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        string
	CreatedAt   int64
}

// GetWorkspaceRole returns the user's role in a workspace, or "" for
// non-members. Soft-delete state is ignored; callers filter as needed.
func (db *ServerDB) GetWorkspaceRole(userID, workspaceID string) (string, error) {
	var role string
	err := db.conn.QueryRow(
		`SELECT role FROM workspace_members WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get workspace role: %w", err)
	}
	return role, nil
}

// Authorize checks that the user has at least the required role in a
// non-deleted workspace.
func (db *ServerDB) Authorize(userID, workspaceID, requiredRole string) error {
	var role string
	err := db.conn.QueryRow(
		`SELECT m.role FROM workspace_members m
		 JOIN workspaces w ON w.id = m.workspace_id
		 WHERE m.workspace_id = ? AND m.user_id = ? AND w.deleted = 0`,
		workspaceID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if roleLevel(role) < roleLevel(requiredRole) {
		return fmt.Errorf("have %s, need %s: %w", role, requiredRole, ErrForbiddenRole)
	}
	return nil
}

// ListMembers returns all members of a workspace.
func (db *ServerDB) ListMembers(workspaceID string) ([]*Member, error) {
	rows, err := db.conn.Query(
		`SELECT id, workspace_id, user_id, role, created_at FROM workspace_members WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: iterate: %w", err)
	}
	return members, nil
}

// UpsertMember adds the user to the workspace, or overwrites the role of
// an existing membership. The unique index on (workspace_id, user_id) is
// the coordination primitive; concurrent upserts converge.
func (db *ServerDB) UpsertMember(workspaceID, userID, role string) error {
	if !isValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}
	_, err := db.conn.Exec(
		`INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(workspace_id, user_id) DO UPDATE SET role = excluded.role`,
		NewID(), workspaceID, userID, role, nowUnix(),
	)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

// SetMemberRole changes an existing member's role.
func (db *ServerDB) SetMemberRole(workspaceID, userID, role string) error {
	if !isValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}
	res, err := db.conn.Exec(
		`UPDATE workspace_members SET role = ? WHERE workspace_id = ? AND user_id = ?`,
		role, workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("set member role: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveMember removes a user from a workspace. If the removed user's
// active workspace pointer referenced it, the pointer is re-homed.
func (db *ServerDB) RemoveMember(workspaceID, userID string) error {
	tx, err := db.beginWrite()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM workspace_members WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}

	if err := rehomeActivePointer(tx, userID, workspaceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rehomeActivePointer points the user's active workspace at any other
// non-deleted workspace they belong to, or NULL, if it currently
// references avoidWorkspaceID.
func rehomeActivePointer(tx *sql.Tx, userID, avoidWorkspaceID string) error {
	var active sql.NullString
	if err := tx.QueryRow(`SELECT active_workspace_id FROM users WHERE id = ?`, userID).Scan(&active); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("read active workspace: %w", err)
	}
	if !active.Valid || active.String != avoidWorkspaceID {
		return nil
	}

	var replacement sql.NullString
	err := tx.QueryRow(
		`SELECT w.id FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = ? AND w.deleted = 0 AND w.id != ?
		 ORDER BY m.created_at
		 LIMIT 1`,
		userID, avoidWorkspaceID,
	).Scan(&replacement)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("find replacement workspace: %w", err)
	}

	if _, err := tx.Exec(`UPDATE users SET active_workspace_id = ? WHERE id = ?`, replacement, userID); err != nil {
		return fmt.Errorf("rehome active workspace: %w", err)
	}
	return nil
}
