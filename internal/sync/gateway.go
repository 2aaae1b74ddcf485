package sync

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Gateway is the sync engine. It borrows the process-wide database
// handle; all coordination (counter allocation, idempotency, tombstone
// uniqueness, cursor forward-only) rides on the store's transactional
// guarantees and unique-index conflict semantics.
type Gateway struct {
	db *sql.DB
}

// NewGateway creates a Gateway over the shared database handle.
func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

func newRowID() string {
	return uuid.NewString()
}

func nowUnix() int64 {
	return time.Now().UTC().Unix()
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// counterValue reads the workspace version counter, defaulting to 0 for
// workspaces that have never received a push.
func counterValue(q rowQuerier, workspaceID string) (int64, error) {
	var value int64
	err := q.QueryRow(`SELECT value FROM server_version_counters WHERE workspace_id = ?`, workspaceID).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return value, nil
}

// Status reports the sync state of a workspace.
func (g *Gateway) Status(workspaceID string) (*Status, error) {
	st := &Status{WorkspaceID: workspaceID}

	var err error
	st.ServerVersion, err = counterValue(g.db, workspaceID)
	if err != nil {
		return nil, err
	}

	if err := g.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(created_at), 0) FROM change_log WHERE workspace_id = ?`, workspaceID,
	).Scan(&st.ChangeLogRows, &st.OldestChangeAt); err != nil {
		return nil, fmt.Errorf("count change log: %w", err)
	}

	if err := g.db.QueryRow(
		`SELECT COUNT(*) FROM tombstones WHERE workspace_id = ?`, workspaceID,
	).Scan(&st.TombstoneRows); err != nil {
		return nil, fmt.Errorf("count tombstones: %w", err)
	}

	if err := g.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(last_seen_version), 0) FROM device_cursors WHERE workspace_id = ?`, workspaceID,
	).Scan(&st.DeviceCursors, &st.MinCursor); err != nil {
		return nil, fmt.Errorf("count cursors: %w", err)
	}

	return st, nil
}
