package sync

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/loomapp/loom/internal/serverdb"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	db, err := serverdb.Open(serverdb.StoreConfig{TestMode: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewGateway(db.Handle())
}

// putOp builds a put against the threads table with a generated payload.
func putOp(pk, opID, device, hlc string, clock int64) PendingOp {
	return PendingOp{
		TableName: "threads",
		Operation: OpPut,
		PK:        pk,
		Payload:   json.RawMessage(fmt.Sprintf(`{"title":"op %s"}`, opID)),
		Stamp:     Stamp{DeviceID: device, OpID: opID, HLC: hlc, Clock: clock},
	}
}

func deleteOp(pk, opID, device, hlc string, clock int64) PendingOp {
	return PendingOp{
		TableName: "threads",
		Operation: OpDelete,
		PK:        pk,
		Stamp:     Stamp{DeviceID: device, OpID: opID, HLC: hlc, Clock: clock},
	}
}

// threadRow reads the materialized threads row for assertions.
func threadRow(t *testing.T, g *Gateway, wsID, pk string) (clock int64, hlc string, deleted bool, data string) {
	t.Helper()
	var del int
	err := g.db.QueryRow(
		`SELECT clock, hlc, deleted, data_json FROM threads WHERE workspace_id = ? AND id = ?`,
		wsID, pk,
	).Scan(&clock, &hlc, &del, &data)
	if err != nil {
		t.Fatalf("read threads row: %v", err)
	}
	return clock, hlc, del == 1, data
}
