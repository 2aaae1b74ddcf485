package sync

import (
	"database/sql"
	"fmt"
	"strings"
)

// probeChunkSize bounds the number of op_ids per idempotency lookup so a
// single statement stays under SQLite's parameter limit.
const probeChunkSize = 400

// Push applies a batch of ops to a workspace in one transaction. Replays
// (ops whose op_id is already in the change log) succeed with their
// original server version and touch no state; each distinct new op_id is
// assigned the next contiguous server version. The batch is
// all-or-nothing: validation failure rejects it without touching state,
// and a storage failure rolls everything back.
func (g *Gateway) Push(workspaceID string, ops []PendingOp) (*PushResult, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace_id is required")
	}

	if len(ops) == 0 {
		value, err := counterValue(g.db, workspaceID)
		if err != nil {
			return nil, err
		}
		return &PushResult{Results: []OpResult{}, ServerVersion: value}, nil
	}

	if rejected := validateBatch(ops); rejected != nil {
		value, err := counterValue(g.db, workspaceID)
		if err != nil {
			return nil, err
		}
		return &PushResult{Results: rejected, ServerVersion: value}, nil
	}

	tx, err := g.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Idempotency probe: which op_ids are already committed?
	existing, err := probeExisting(tx, ops)
	if err != nil {
		return nil, err
	}

	// Intra-batch dedupe: versions are allocated per distinct new op_id,
	// in first-occurrence order.
	var newOrder []string
	seen := map[string]bool{}
	for _, op := range ops {
		id := op.Stamp.OpID
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := existing[id]; !ok {
			newOrder = append(newOrder, id)
		}
	}

	base, err := counterValue(tx, workspaceID)
	if err != nil {
		return nil, err
	}

	if len(newOrder) > 0 {
		if _, err := tx.Exec(
			`INSERT INTO server_version_counters (workspace_id, value) VALUES (?, ?)
			 ON CONFLICT(workspace_id) DO UPDATE SET value = excluded.value`,
			workspaceID, base+int64(len(newOrder)),
		); err != nil {
			return nil, fmt.Errorf("advance counter: %w", err)
		}
	}

	allocated := make(map[string]int64, len(newOrder))
	for i, id := range newOrder {
		allocated[id] = base + int64(i) + 1
	}

	now := nowUnix()
	applied := map[string]bool{}
	results := make([]OpResult, 0, len(ops))

	for _, op := range ops {
		id := op.Stamp.OpID

		if version, ok := existing[id]; ok {
			results = append(results, OpResult{OpID: id, Success: true, ServerVersion: version})
			continue
		}
		version := allocated[id]
		if applied[id] {
			// Duplicate within the batch: mirror the first occurrence.
			results = append(results, OpResult{OpID: id, Success: true, ServerVersion: version})
			continue
		}
		applied[id] = true

		var payload any
		if len(op.Payload) > 0 {
			payload = string(op.Payload)
		}
		if _, err := tx.Exec(
			`INSERT INTO change_log (id, workspace_id, server_version, table_name, pk, op, payload_json, clock, hlc, device_id, op_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newRowID(), workspaceID, version, op.TableName, op.PK, op.Operation,
			payload, op.Stamp.Clock, op.Stamp.HLC, op.Stamp.DeviceID, id, now,
		); err != nil {
			return nil, fmt.Errorf("insert change %s: %w", id, err)
		}

		if err := applyMaterialized(tx, workspaceID, op, now); err != nil {
			return nil, err
		}
		if op.Operation == OpDelete {
			if err := upsertTombstone(tx, workspaceID, op, version, now); err != nil {
				return nil, err
			}
		}

		results = append(results, OpResult{OpID: id, Success: true, ServerVersion: version})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit push: %w", err)
	}

	return &PushResult{
		Results:       results,
		ServerVersion: base + int64(len(newOrder)),
	}, nil
}

// validateBatch checks every op against the sync-table allowlist and for
// required fields. Any failure rejects the whole batch: the returned
// results mark every op failed and no state is touched.
func validateBatch(ops []PendingOp) []OpResult {
	var reason string
	for _, op := range ops {
		switch {
		case !IsSyncTable(op.TableName):
			reason = fmt.Sprintf("unknown sync table: %s", op.TableName)
		case op.Operation != OpPut && op.Operation != OpDelete:
			reason = fmt.Sprintf("unknown operation: %s", op.Operation)
		case op.PK == "":
			reason = "empty pk"
		case op.Stamp.OpID == "":
			reason = "empty op_id"
		case op.Stamp.DeviceID == "":
			reason = "empty device_id"
		}
		if reason != "" {
			break
		}
	}
	if reason == "" {
		return nil
	}

	results := make([]OpResult, len(ops))
	for i, op := range ops {
		results[i] = OpResult{
			OpID:      op.Stamp.OpID,
			Success:   false,
			Error:     reason,
			ErrorCode: ErrCodeValidation,
		}
	}
	return results
}

// probeExisting looks up the batch's op_ids in the change log in bounded
// chunks and returns op_id -> server_version for committed ops.
func probeExisting(tx *sql.Tx, ops []PendingOp) (map[string]int64, error) {
	ids := make([]string, 0, len(ops))
	seen := map[string]bool{}
	for _, op := range ops {
		if !seen[op.Stamp.OpID] {
			seen[op.Stamp.OpID] = true
			ids = append(ids, op.Stamp.OpID)
		}
	}

	existing := make(map[string]int64)
	for start := 0; start < len(ids); start += probeChunkSize {
		end := start + probeChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		rows, err := tx.Query(
			`SELECT op_id, server_version FROM change_log WHERE op_id IN (`+placeholders+`)`, args...,
		)
		if err != nil {
			return nil, fmt.Errorf("probe op ids: %w", err)
		}
		for rows.Next() {
			var id string
			var version int64
			if err := rows.Scan(&id, &version); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan probe row: %w", err)
			}
			existing[id] = version
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("probe op ids: iterate: %w", err)
		}
	}
	return existing, nil
}
