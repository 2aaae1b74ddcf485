package sync

// syncTables is the static allowlist of tables devices may sync. Each has
// a materialized table of the same name holding the current LWW winner.
var syncTables = map[string]bool{
	"threads":       true,
	"messages":      true,
	"projects":      true,
	"posts":         true,
	"kv":            true,
	"file_meta":     true,
	"notifications": true,
}

// IsSyncTable reports whether the table name is in the sync allowlist.
func IsSyncTable(name string) bool {
	return syncTables[name]
}

// SyncTables returns the allowlisted table names.
func SyncTables() []string {
	out := make([]string, 0, len(syncTables))
	for t := range syncTables {
		out = append(out, t)
	}
	return out
}
