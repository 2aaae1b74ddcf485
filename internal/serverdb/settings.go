package serverdb

import (
	"database/sql"
	"fmt"
)

// GetWorkspaceSetting returns the value for a workspace setting key, or
// "" with found=false when unset.
func (db *ServerDB) GetWorkspaceSetting(workspaceID, key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow(
		`SELECT value FROM workspace_settings WHERE workspace_id = ? AND key = ?`,
		workspaceID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, true, nil
}

// SetWorkspaceSetting upserts a workspace setting.
func (db *ServerDB) SetWorkspaceSetting(workspaceID, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	_, err := db.conn.Exec(
		`INSERT INTO workspace_settings (workspace_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(workspace_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		workspaceID, key, value, nowUnix(),
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// ListWorkspaceSettings returns all settings for a workspace.
func (db *ServerDB) ListWorkspaceSettings(workspaceID string) (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, value FROM workspace_settings WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: iterate: %w", err)
	}
	return out, nil
}
