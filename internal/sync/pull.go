package sync

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// maxPullLimit caps the number of changes returned by a single pull.
const maxPullLimit = 1000

// Pull returns change-log entries for a workspace with server_version
// greater than cursor, ascending, optionally restricted to a set of
// tables. It reads committed state only and never mutates anything.
func (g *Gateway) Pull(workspaceID string, cursor int64, limit int, tables []string) (*PullResult, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}
	if limit <= 0 || limit > maxPullLimit {
		limit = maxPullLimit
	}

	query := `SELECT server_version, table_name, pk, op, payload_json, clock, hlc, device_id, op_id
	          FROM change_log WHERE workspace_id = ? AND server_version > ?`
	args := []any{workspaceID, cursor}

	if len(tables) > 0 {
		for _, t := range tables {
			if !IsSyncTable(t) {
				return nil, fmt.Errorf("unknown sync table: %s", t)
			}
			args = append(args, t)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tables)), ",")
		query += ` AND table_name IN (` + placeholders + `)`
	}

	// One extra row decides has_more.
	query += ` ORDER BY server_version ASC LIMIT ?`
	args = append(args, limit+1)

	rows, err := g.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	result := &PullResult{NextCursor: cursor}
	for rows.Next() {
		var c Change
		var payload sql.NullString
		if err := rows.Scan(&c.ServerVersion, &c.TableName, &c.PK, &c.Op, &payload,
			&c.Stamp.Clock, &c.Stamp.HLC, &c.Stamp.DeviceID, &c.Stamp.OpID); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		if payload.Valid {
			c.Payload = json.RawMessage(payload.String)
		}
		result.Changes = append(result.Changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query changes: iterate: %w", err)
	}

	if len(result.Changes) > limit {
		result.Changes = result.Changes[:limit]
		result.HasMore = true
	}
	if n := len(result.Changes); n > 0 {
		result.NextCursor = result.Changes[n-1].ServerVersion
	}
	return result, nil
}
