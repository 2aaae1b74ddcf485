package serverdb

import (
	"database/sql"
	"fmt"
	"strings"
)

// DefaultWorkspaceName is the name given to a user's first workspace when
// none exists at identity resolution time.
const DefaultWorkspaceName = "My Workspace"

// Workspace represents a tenant boundary for synced state.
type Workspace struct {
	ID          string
	Name        string
	Description string
	OwnerUserID string
	Deleted     bool
	DeletedAt   *int64
	CreatedAt   int64
}

// WorkspaceListing is a workspace row joined with the caller's membership.
type WorkspaceListing struct {
	ID          string
	Name        string
	Description string
	Role        string
	CreatedAt   int64
	IsActive    bool
}

// CreateWorkspace inserts a workspace and its owner membership in a
// single transaction.
func (db *ServerDB) CreateWorkspace(userID, name, description string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("workspace name is required")
	}

	tx, err := db.beginWrite()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id, err := createWorkspaceTx(tx, userID, name, description)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func createWorkspaceTx(tx *sql.Tx, userID, name, description string) (string, error) {
	id := NewID()
	now := nowUnix()

	if _, err := tx.Exec(
		`INSERT INTO workspaces (id, name, description, owner_user_id, deleted, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		id, name, description, userID, now,
	); err != nil {
		return "", fmt.Errorf("insert workspace: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		NewID(), id, userID, RoleOwner, now,
	); err != nil {
		return "", fmt.Errorf("insert owner membership: %w", err)
	}

	return id, nil
}

// GetOrCreateDefaultWorkspace returns the workspace a user should land
// in. Preference order: the current active pointer when it names a
// non-deleted workspace the user still belongs to; the oldest membership
// in a non-deleted workspace (repairing a stale pointer); otherwise a
// fresh workspace owned by the user.
func (db *ServerDB) GetOrCreateDefaultWorkspace(userID string) (string, string, error) {
	tx, err := db.beginWrite()
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback()

	var active sql.NullString
	if err := tx.QueryRow(`SELECT active_workspace_id FROM users WHERE id = ?`, userID).Scan(&active); err != nil {
		if err == sql.ErrNoRows {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("read active workspace: %w", err)
	}

	if active.Valid {
		var id, name string
		err := tx.QueryRow(
			`SELECT w.id, w.name FROM workspaces w
			 JOIN workspace_members m ON m.workspace_id = w.id
			 WHERE w.id = ? AND m.user_id = ? AND w.deleted = 0`,
			active.String, userID,
		).Scan(&id, &name)
		if err == nil {
			tx.Rollback()
			return id, name, nil
		}
		if err != sql.ErrNoRows {
			return "", "", fmt.Errorf("check active workspace: %w", err)
		}
		// stale pointer, fall through and repair
	}

	var id, name string
	err = tx.QueryRow(
		`SELECT w.id, w.name FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = ? AND w.deleted = 0
		 ORDER BY m.created_at
		 LIMIT 1`,
		userID,
	).Scan(&id, &name)
	if err != nil && err != sql.ErrNoRows {
		return "", "", fmt.Errorf("find oldest membership: %w", err)
	}

	if err == sql.ErrNoRows {
		id, err = createWorkspaceTx(tx, userID, DefaultWorkspaceName, "")
		if err != nil {
			return "", "", err
		}
		name = DefaultWorkspaceName
	}

	if _, err := tx.Exec(`UPDATE users SET active_workspace_id = ? WHERE id = ?`, id, userID); err != nil {
		return "", "", fmt.Errorf("set active workspace: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit: %w", err)
	}
	return id, name, nil
}

// ListUserWorkspaces returns the non-deleted workspaces the user belongs
// to, oldest membership first.
func (db *ServerDB) ListUserWorkspaces(userID string) ([]*WorkspaceListing, error) {
	rows, err := db.conn.Query(
		`SELECT w.id, w.name, w.description, m.role, w.created_at,
		        CASE WHEN u.active_workspace_id = w.id THEN 1 ELSE 0 END
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 JOIN users u ON u.id = m.user_id
		 WHERE m.user_id = ? AND w.deleted = 0
		 ORDER BY m.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*WorkspaceListing
	for rows.Next() {
		l := &WorkspaceListing{}
		var isActive int
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Role, &l.CreatedAt, &isActive); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		l.IsActive = isActive == 1
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workspaces: iterate: %w", err)
	}
	return out, nil
}

// UpdateWorkspace renames a workspace. Requires owner or editor role.
// Soft-deleted workspaces are left untouched.
func (db *ServerDB) UpdateWorkspace(userID, workspaceID, name, description string) error {
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}

	role, err := db.GetWorkspaceRole(userID, workspaceID)
	if err != nil {
		return err
	}
	if roleLevel(role) < roleLevel(RoleEditor) {
		return ErrForbiddenRole
	}

	_, err = db.conn.Exec(
		`UPDATE workspaces SET name = ?, description = ? WHERE id = ? AND deleted = 0`,
		name, description, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	return nil
}

// RemoveWorkspace soft-deletes a workspace. Requires owner role. Every
// user whose active pointer referenced the workspace is re-homed in the
// same transaction.
func (db *ServerDB) RemoveWorkspace(userID, workspaceID string) error {
	role, err := db.GetWorkspaceRole(userID, workspaceID)
	if err != nil {
		return err
	}
	if role != RoleOwner {
		return ErrForbiddenOwner
	}
	return db.softDelete(workspaceID)
}

// SetActiveWorkspace points the user's active workspace at the given
// workspace. Requires an active (non-soft-deleted) membership.
func (db *ServerDB) SetActiveWorkspace(userID, workspaceID string) error {
	var exists int
	err := db.conn.QueryRow(
		`SELECT 1 FROM workspace_members m
		 JOIN workspaces w ON w.id = m.workspace_id
		 WHERE m.workspace_id = ? AND m.user_id = ? AND w.deleted = 0`,
		workspaceID, userID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	if _, err := db.conn.Exec(`UPDATE users SET active_workspace_id = ? WHERE id = ?`, workspaceID, userID); err != nil {
		return fmt.Errorf("set active workspace: %w", err)
	}
	return nil
}

// GetWorkspace returns a workspace by ID, including soft-deleted ones, or
// nil if not found.
func (db *ServerDB) GetWorkspace(id string) (*Workspace, error) {
	w := &Workspace{}
	var deleted int
	var deletedAt sql.NullInt64
	err := db.conn.QueryRow(
		`SELECT id, name, description, owner_user_id, deleted, deleted_at, created_at FROM workspaces WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Description, &w.OwnerUserID, &deleted, &deletedAt, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	w.Deleted = deleted == 1
	if deletedAt.Valid {
		w.DeletedAt = &deletedAt.Int64
	}
	return w, nil
}

// AdminListWorkspaces pages over all workspaces for the admin surface.
// search matches name or description as a LIKE pattern.
func (db *ServerDB) AdminListWorkspaces(search string, includeDeleted bool, limit, offset int) ([]*Workspace, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, name, description, owner_user_id, deleted, deleted_at, created_at FROM workspaces WHERE 1=1`
	var args []any
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		w := &Workspace{}
		var deleted int
		var deletedAt sql.NullInt64
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.OwnerUserID, &deleted, &deletedAt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		w.Deleted = deleted == 1
		if deletedAt.Valid {
			w.DeletedAt = &deletedAt.Int64
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workspaces: iterate: %w", err)
	}
	return out, nil
}

// SoftDeleteWorkspace marks a workspace deleted without a role check; the
// admin surface authorizes separately.
func (db *ServerDB) SoftDeleteWorkspace(workspaceID string) error {
	return db.softDelete(workspaceID)
}

func (db *ServerDB) softDelete(workspaceID string) error {
	tx, err := db.beginWrite()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowUnix()
	res, err := tx.Exec(
		`UPDATE workspaces SET deleted = 1, deleted_at = ? WHERE id = ? AND deleted = 0`,
		now, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("soft delete workspace: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}

	// Re-home every user whose active pointer referenced this workspace.
	rows, err := tx.Query(`SELECT id FROM users WHERE active_workspace_id = ?`, workspaceID)
	if err != nil {
		return fmt.Errorf("find affected users: %w", err)
	}
	var affected []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan affected user: %w", err)
		}
		affected = append(affected, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("find affected users: iterate: %w", err)
	}

	for _, uid := range affected {
		if err := rehomeActivePointer(tx, uid, workspaceID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RestoreWorkspace clears the deleted flag on a soft-deleted workspace.
func (db *ServerDB) RestoreWorkspace(workspaceID string) error {
	res, err := db.conn.Exec(
		`UPDATE workspaces SET deleted = 0, deleted_at = NULL WHERE id = ? AND deleted = 1`,
		workspaceID,
	)
	if err != nil {
		return fmt.Errorf("restore workspace: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
