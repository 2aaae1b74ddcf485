package sync

import (
	"fmt"
	"log/slog"
)

// gcBatchSize bounds how many rows a single GC delete touches, keeping
// writer-lock hold times short.
const gcBatchSize = 1000

// GCChangeLog deletes change-log rows every device has already seen
// (server_version below the workspace's minimum cursor) that are also
// older than the retention window. It deletes in batches and returns the
// total number of rows removed.
func (g *Gateway) GCChangeLog(workspaceID string, retentionSeconds int64) (int64, error) {
	return g.gcTable(workspaceID, retentionSeconds, "change_log")
}

// GCTombstones applies the same predicate to the tombstones table.
func (g *Gateway) GCTombstones(workspaceID string, retentionSeconds int64) (int64, error) {
	return g.gcTable(workspaceID, retentionSeconds, "tombstones")
}

func (g *Gateway) gcTable(workspaceID string, retentionSeconds int64, table string) (int64, error) {
	minCursor, err := g.minCursor(workspaceID)
	if err != nil {
		return 0, err
	}
	cutoff := nowUnix() - retentionSeconds

	var total int64
	for {
		res, err := g.db.Exec(
			`DELETE FROM `+table+` WHERE id IN (
			   SELECT id FROM `+table+`
			   WHERE workspace_id = ? AND server_version < ? AND created_at < ?
			   LIMIT ?)`,
			workspaceID, minCursor, cutoff, gcBatchSize,
		)
		if err != nil {
			return total, fmt.Errorf("gc %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("gc %s: rows affected: %w", table, err)
		}
		total += n
		if n < gcBatchSize {
			break
		}
	}

	if total > 0 {
		slog.Info("gc", "table", table, "ws", workspaceID, "deleted", total, "min_cursor", minCursor)
	}
	return total, nil
}
