package sync

import "encoding/json"

// Op kinds.
const (
	OpPut    = "put"
	OpDelete = "delete"
)

// Result error codes.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeInternal   = "INTERNAL"
)

// Stamp carries the client-side identity of an op: the device that
// produced it, its globally unique op ID, and its HLC/clock pair used for
// last-writer-wins merging. The HLC is an opaque, lexicographically
// comparable string.
type Stamp struct {
	DeviceID string `json:"device_id"`
	OpID     string `json:"op_id"`
	HLC      string `json:"hlc"`
	Clock    int64  `json:"clock"`
}

// PendingOp is a single locally mutated operation pushed by a device.
type PendingOp struct {
	TableName string          `json:"table_name"`
	Operation string          `json:"operation"`
	PK        string          `json:"pk"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Stamp     Stamp           `json:"stamp"`
}

// OpResult reports the outcome of a single op in a push batch.
// Idempotent replays are successes carrying the original server version.
type OpResult struct {
	OpID          string `json:"op_id"`
	Success       bool   `json:"success"`
	ServerVersion int64  `json:"server_version,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
}

// PushResult is the response to a push batch. ServerVersion is the
// workspace counter after the call.
type PushResult struct {
	Results       []OpResult `json:"results"`
	ServerVersion int64      `json:"server_version"`
}

// Change is a single change-log entry returned by pull.
type Change struct {
	ServerVersion int64           `json:"server_version"`
	TableName     string          `json:"table_name"`
	PK            string          `json:"pk"`
	Op            string          `json:"op"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Stamp         Stamp           `json:"stamp"`
}

// PullResult is the response to a pull request. NextCursor is the
// server version of the last returned change, or the input cursor when
// nothing was returned.
type PullResult struct {
	Changes    []Change `json:"changes"`
	NextCursor int64    `json:"next_cursor"`
	HasMore    bool     `json:"has_more"`
}

// Cursor is a device's per-workspace high-water mark of delivered
// server versions.
type Cursor struct {
	WorkspaceID     string `json:"workspace_id"`
	DeviceID        string `json:"device_id"`
	LastSeenVersion int64  `json:"last_seen_version"`
	UpdatedAt       int64  `json:"updated_at"`
}

// Status summarizes a workspace's sync state for the admin surface.
type Status struct {
	WorkspaceID    string `json:"workspace_id"`
	ServerVersion  int64  `json:"server_version"`
	ChangeLogRows  int64  `json:"change_log_rows"`
	TombstoneRows  int64  `json:"tombstone_rows"`
	DeviceCursors  int64  `json:"device_cursors"`
	MinCursor      int64  `json:"min_cursor"`
	OldestChangeAt int64  `json:"oldest_change_at,omitempty"`
}
