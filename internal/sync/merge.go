package sync

import (
	"database/sql"
	"fmt"
)

// applyMaterialized applies one op to its materialized table using
// last-writer-wins: an incoming op takes the row when its (clock, hlc)
// pair is strictly greater than the stored one. Deletes keep the row and
// set the deleted flag so losing puts cannot resurrect it. Table names
// are validated against the allowlist before this point, so interpolating
// them is safe.
func applyMaterialized(tx *sql.Tx, workspaceID string, op PendingOp, now int64) error {
	table := op.TableName
	dataJSON := "{}"
	if op.Operation == OpPut && len(op.Payload) > 0 {
		dataJSON = string(op.Payload)
	}
	deleted := 0
	if op.Operation == OpDelete {
		deleted = 1
	}

	var existingClock int64
	var existingHLC string
	err := tx.QueryRow(
		`SELECT clock, hlc FROM `+table+` WHERE workspace_id = ? AND id = ?`,
		workspaceID, op.PK,
	).Scan(&existingClock, &existingHLC)

	if err == sql.ErrNoRows {
		if _, err := tx.Exec(
			`INSERT INTO `+table+` (workspace_id, id, data_json, clock, hlc, device_id, deleted, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			workspaceID, op.PK, dataJSON, op.Stamp.Clock, op.Stamp.HLC, op.Stamp.DeviceID, deleted, now, now,
		); err != nil {
			return fmt.Errorf("insert %s row: %w", table, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s row: %w", table, err)
	}

	if !wins(op.Stamp.Clock, op.Stamp.HLC, existingClock, existingHLC) {
		return nil
	}

	if op.Operation == OpDelete {
		// Keep the stored payload; only the stamp and flag change.
		if _, err := tx.Exec(
			`UPDATE `+table+` SET clock = ?, hlc = ?, device_id = ?, deleted = 1, updated_at = ?
			 WHERE workspace_id = ? AND id = ?`,
			op.Stamp.Clock, op.Stamp.HLC, op.Stamp.DeviceID, now, workspaceID, op.PK,
		); err != nil {
			return fmt.Errorf("mark %s row deleted: %w", table, err)
		}
		return nil
	}

	if _, err := tx.Exec(
		`UPDATE `+table+` SET data_json = ?, clock = ?, hlc = ?, device_id = ?, deleted = 0, updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		dataJSON, op.Stamp.Clock, op.Stamp.HLC, op.Stamp.DeviceID, now, workspaceID, op.PK,
	); err != nil {
		return fmt.Errorf("update %s row: %w", table, err)
	}
	return nil
}

// wins reports whether the incoming (clock, hlc) pair beats the existing
// one. HLCs compare as raw byte strings.
func wins(clock int64, hlc string, existingClock int64, existingHLC string) bool {
	if clock != existingClock {
		return clock > existingClock
	}
	return hlc > existingHLC
}
