package sync

import (
	"strings"
	"testing"
)

func TestMergeHigherClockWins(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op1", "dev1", "a", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "a", 2)}); err != nil {
		t.Fatal(err)
	}

	clock, _, deleted, data := threadRow(t, g, "ws1", "t1")
	if clock != 2 {
		t.Errorf("clock = %d, want 2", clock)
	}
	if deleted {
		t.Error("row should not be deleted")
	}
	if !strings.Contains(data, "op2") {
		t.Errorf("payload = %s, want op2's", data)
	}
}

func TestMergeHLCTiebreak(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op1", "dev1", "aaa", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "bbb", 1)}); err != nil {
		t.Fatal(err)
	}

	_, hlc, _, data := threadRow(t, g, "ws1", "t1")
	if hlc != "bbb" {
		t.Errorf("hlc = %q, want bbb", hlc)
	}
	if !strings.Contains(data, "op2") {
		t.Errorf("payload = %s, want op2's", data)
	}
}

func TestMergeStaleWriteIgnored(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op1", "dev1", "b", 5)}); err != nil {
		t.Fatal(err)
	}
	res, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "a", 3)})
	if err != nil {
		t.Fatal(err)
	}
	// The op still lands in the change log and gets a version.
	if !res.Results[0].Success {
		t.Error("stale op should still be accepted into the log")
	}

	clock, _, _, data := threadRow(t, g, "ws1", "t1")
	if clock != 5 {
		t.Errorf("clock = %d, want 5", clock)
	}
	if !strings.Contains(data, "op1") {
		t.Errorf("payload = %s, stale write must not apply", data)
	}
}

func TestMergeEqualStampLoses(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op1", "dev1", "a", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "a", 1)}); err != nil {
		t.Fatal(err)
	}

	_, _, _, data := threadRow(t, g, "ws1", "t1")
	if !strings.Contains(data, "op1") {
		t.Errorf("payload = %s, equal stamp must not overwrite", data)
	}
}

func TestMergeDeleteKeepsRow(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op1", "dev1", "a", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op2", "dev1", "b", 2)}); err != nil {
		t.Fatal(err)
	}

	clock, _, deleted, data := threadRow(t, g, "ws1", "t1")
	if !deleted {
		t.Error("row should carry the deleted flag")
	}
	if clock != 2 {
		t.Errorf("clock = %d, want 2", clock)
	}
	// The delete keeps the last payload.
	if !strings.Contains(data, "op1") {
		t.Errorf("payload = %s, delete should not clear it", data)
	}
}

func TestMergeStalePutCannotResurrect(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op1", "dev1", "b", 5)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "a", 3)}); err != nil {
		t.Fatal(err)
	}

	_, _, deleted, _ := threadRow(t, g, "ws1", "t1")
	if !deleted {
		t.Error("stale put resurrected a deleted row")
	}
}

func TestMergeNewerPutResurrects(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op1", "dev1", "a", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "b", 2)}); err != nil {
		t.Fatal(err)
	}

	_, _, deleted, data := threadRow(t, g, "ws1", "t1")
	if deleted {
		t.Error("newer put should clear the deleted flag")
	}
	if !strings.Contains(data, "op2") {
		t.Errorf("payload = %s", data)
	}
}

func TestTombstoneUpgradesInPlace(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op1", "dev1", "a", 1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{putOp("t1", "op2", "dev2", "b", 2)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op3", "dev1", "c", 3)}); err != nil {
		t.Fatal(err)
	}

	var n int
	var clock int64
	if err := g.db.QueryRow(
		`SELECT COUNT(*), MAX(clock) FROM tombstones WHERE workspace_id = 'ws1' AND table_name = 'threads' AND pk = 't1'`,
	).Scan(&n, &clock); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("tombstone rows = %d, want 1 (keyed by workspace/table/pk)", n)
	}
	if clock != 3 {
		t.Errorf("tombstone clock = %d, want 3", clock)
	}
}

func TestTombstoneIgnoresStaleDelete(t *testing.T) {
	g := newTestGateway(t)

	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op1", "dev1", "b", 5)}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Push("ws1", []PendingOp{deleteOp("t1", "op2", "dev2", "a", 2)}); err != nil {
		t.Fatal(err)
	}

	var clock int64
	if err := g.db.QueryRow(
		`SELECT clock FROM tombstones WHERE workspace_id = 'ws1' AND table_name = 'threads' AND pk = 't1'`,
	).Scan(&clock); err != nil {
		t.Fatal(err)
	}
	if clock != 5 {
		t.Errorf("tombstone clock = %d, want 5", clock)
	}
}
