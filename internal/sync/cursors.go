package sync

import (
	"database/sql"
	"fmt"
)

// UpdateCursor records how far a device has pulled. Cursors only move
// forward: the persisted value is the max of the stored and incoming
// versions, while updated_at always advances.
func (g *Gateway) UpdateCursor(workspaceID, deviceID string, version int64) error {
	if workspaceID == "" || deviceID == "" {
		return fmt.Errorf("workspace_id and device_id are required")
	}
	_, err := g.db.Exec(
		`INSERT INTO device_cursors (id, workspace_id, device_id, last_seen_version, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(workspace_id, device_id) DO UPDATE SET
		   last_seen_version = MAX(device_cursors.last_seen_version, excluded.last_seen_version),
		   updated_at = excluded.updated_at`,
		newRowID(), workspaceID, deviceID, version, nowUnix(),
	)
	if err != nil {
		return fmt.Errorf("update cursor: %w", err)
	}
	return nil
}

// GetCursor returns the cursor for a device in a workspace, or nil.
func (g *Gateway) GetCursor(workspaceID, deviceID string) (*Cursor, error) {
	c := &Cursor{}
	err := g.db.QueryRow(
		`SELECT workspace_id, device_id, last_seen_version, updated_at FROM device_cursors
		 WHERE workspace_id = ? AND device_id = ?`,
		workspaceID, deviceID,
	).Scan(&c.WorkspaceID, &c.DeviceID, &c.LastSeenVersion, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	return c, nil
}

// minCursor returns the lowest last_seen_version across the workspace's
// device cursors, or 0 when none exist.
func (g *Gateway) minCursor(workspaceID string) (int64, error) {
	var min int64
	err := g.db.QueryRow(
		`SELECT COALESCE(MIN(last_seen_version), 0) FROM device_cursors WHERE workspace_id = ?`,
		workspaceID,
	).Scan(&min)
	if err != nil {
		return 0, fmt.Errorf("min cursor: %w", err)
	}
	return min, nil
}
