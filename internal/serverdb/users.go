package serverdb

import (
	"database/sql"
	"fmt"
	"strings"
)

// User represents a registered user. Users are created on first identity
// resolution and never hard-deleted.
type User struct {
	ID                string
	Email             string
	DisplayName       string
	ActiveWorkspaceID string // empty when unset
	CreatedAt         int64
}

// ResolveOrCreateUser maps an external identity to an internal user,
// creating the user on first sight. It is idempotent under concurrency:
// the insert resolves conflicts on the (provider, provider_user_id)
// unique index and re-reads the winner, so two concurrent callers with
// the same identity observe the same user ID.
func (db *ServerDB) ResolveOrCreateUser(provider, providerUserID, email, displayName string) (string, error) {
	if provider == "" || providerUserID == "" {
		return "", fmt.Errorf("provider and provider_user_id are required")
	}

	tx, err := db.beginWrite()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := nowUnix()
	userID := NewID()

	if _, err := tx.Exec(
		`INSERT INTO users (id, email, display_name, active_workspace_id, created_at) VALUES (?, ?, ?, NULL, ?)`,
		userID, email, displayName, now,
	); err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO auth_accounts (id, user_id, provider, provider_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(provider, provider_user_id) DO NOTHING`,
		NewID(), userID, provider, providerUserID, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert auth account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		// Identity already mapped: discard the provisional user and read the winner.
		if _, err := tx.Exec(`DELETE FROM users WHERE id = ?`, userID); err != nil {
			return "", fmt.Errorf("discard provisional user: %w", err)
		}
		if err := tx.QueryRow(
			`SELECT user_id FROM auth_accounts WHERE provider = ? AND provider_user_id = ?`,
			provider, providerUserID,
		).Scan(&userID); err != nil {
			return "", fmt.Errorf("resolve existing identity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// GetUser returns the user mapped to the given external identity, or nil
// if the identity is unknown.
func (db *ServerDB) GetUser(provider, providerUserID string) (*User, error) {
	u := &User{}
	var email, displayName, active sql.NullString
	err := db.conn.QueryRow(
		`SELECT u.id, u.email, u.display_name, u.active_workspace_id, u.created_at
		 FROM users u
		 JOIN auth_accounts a ON a.user_id = u.id
		 WHERE a.provider = ? AND a.provider_user_id = ?`,
		provider, providerUserID,
	).Scan(&u.ID, &email, &displayName, &active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Email = email.String
	u.DisplayName = displayName.String
	u.ActiveWorkspaceID = active.String
	return u, nil
}

// GetUserByID returns the user with the given ID, or nil if not found.
func (db *ServerDB) GetUserByID(id string) (*User, error) {
	u := &User{}
	var email, displayName, active sql.NullString
	err := db.conn.QueryRow(
		`SELECT id, email, display_name, active_workspace_id, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &email, &displayName, &active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	u.Email = email.String
	u.DisplayName = displayName.String
	u.ActiveWorkspaceID = active.String
	return u, nil
}

// GetUserByEmail returns the user with the given email, or nil if not
// found. Emails are compared case-insensitively.
func (db *ServerDB) GetUserByEmail(email string) (*User, error) {
	u := &User{}
	var em, displayName, active sql.NullString
	err := db.conn.QueryRow(
		`SELECT id, email, display_name, active_workspace_id, created_at
		 FROM users WHERE LOWER(COALESCE(email, '')) = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &em, &displayName, &active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	u.Email = em.String
	u.DisplayName = displayName.String
	u.ActiveWorkspaceID = active.String
	return u, nil
}

// SearchUsers returns users whose email or display name matches the query
// (case-insensitive substring). An empty query lists all users.
func (db *ServerDB) SearchUsers(query string, limit int) ([]*User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := db.conn.Query(
		`SELECT id, email, display_name, active_workspace_id, created_at
		 FROM users
		 WHERE LOWER(COALESCE(email, '')) LIKE ? OR LOWER(COALESCE(display_name, '')) LIKE ?
		 ORDER BY created_at
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		var email, displayName, active sql.NullString
		if err := rows.Scan(&u.ID, &email, &displayName, &active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Email = email.String
		u.DisplayName = displayName.String
		u.ActiveWorkspaceID = active.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search users: iterate: %w", err)
	}
	return users, nil
}
