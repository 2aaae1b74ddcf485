package sync

import (
	"database/sql"
	"fmt"
)

// upsertTombstone records that a key was logically deleted. At most one
// tombstone exists per (workspace, table, pk); the unique index resolves
// concurrent deletes, and an existing tombstone is only overwritten when
// the incoming delete wins by (clock, server_version).
func upsertTombstone(tx *sql.Tx, workspaceID string, op PendingOp, serverVersion, now int64) error {
	_, err := tx.Exec(
		`INSERT INTO tombstones (id, workspace_id, table_name, pk, deleted_at, clock, server_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(workspace_id, table_name, pk) DO UPDATE SET
		   deleted_at = excluded.deleted_at,
		   clock = excluded.clock,
		   server_version = excluded.server_version
		 WHERE excluded.clock > tombstones.clock
		    OR (excluded.clock = tombstones.clock AND excluded.server_version > tombstones.server_version)`,
		newRowID(), workspaceID, op.TableName, op.PK, now, op.Stamp.Clock, serverVersion, now,
	)
	if err != nil {
		return fmt.Errorf("upsert tombstone: %w", err)
	}
	return nil
}
