package serverdb

// ServerSchemaVersion is the current database schema version
const ServerSchemaVersion = 2

const serverSchema = `
-- Users table
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT,
    display_name TEXT,
    active_workspace_id TEXT,
    created_at INTEGER NOT NULL
);

-- Auth accounts: external identities mapped to internal users
CREATE TABLE IF NOT EXISTS auth_accounts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE(provider, provider_user_id),
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Workspaces table (soft-deletion only)
CREATE TABLE IF NOT EXISTS workspaces (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_user_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    deleted_at INTEGER,
    created_at INTEGER NOT NULL
);

-- Workspace members
CREATE TABLE IF NOT EXISTS workspace_members (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK(role IN ('owner', 'editor', 'viewer')),
    created_at INTEGER NOT NULL,
    UNIQUE(workspace_id, user_id),
    FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Invites
CREATE TABLE IF NOT EXISTS invites (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    email TEXT NOT NULL,
    role TEXT NOT NULL CHECK(role IN ('owner', 'editor', 'viewer')),
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'accepted', 'revoked', 'expired')),
    invited_by TEXT NOT NULL,
    token_hash TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    accepted_at INTEGER,
    accepted_user_id TEXT,
    revoked_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE
);

-- Deployment-wide operators
CREATE TABLE IF NOT EXISTS admin_users (
    user_id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    created_by TEXT,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

-- Workspace settings key/value bag
CREATE TABLE IF NOT EXISTS workspace_settings (
    workspace_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, key),
    FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE
);

-- Monotonic per-workspace version counters
CREATE TABLE IF NOT EXISTS server_version_counters (
    workspace_id TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);

-- Change log: one row per accepted op, dense server_version per workspace
CREATE TABLE IF NOT EXISTS change_log (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    server_version INTEGER NOT NULL,
    table_name TEXT NOT NULL,
    pk TEXT NOT NULL,
    op TEXT NOT NULL CHECK(op IN ('put', 'delete')),
    payload_json TEXT,
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    op_id TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    UNIQUE(workspace_id, server_version)
);

-- Per-device pull cursors (forward-only)
CREATE TABLE IF NOT EXISTS device_cursors (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    device_id TEXT NOT NULL,
    last_seen_version INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    UNIQUE(workspace_id, device_id)
);

-- Tombstones: one per logically deleted key
CREATE TABLE IF NOT EXISTS tombstones (
    id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    table_name TEXT NOT NULL,
    pk TEXT NOT NULL,
    deleted_at INTEGER NOT NULL,
    clock INTEGER NOT NULL,
    server_version INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE(workspace_id, table_name, pk)
);

-- Materialized sync tables: current LWW-winning row per key
CREATE TABLE IF NOT EXISTS threads (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS messages (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS projects (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS posts (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS kv (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS file_meta (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS notifications (
    workspace_id TEXT NOT NULL,
    id TEXT NOT NULL,
    data_json TEXT NOT NULL DEFAULT '{}',
    clock INTEGER NOT NULL,
    hlc TEXT NOT NULL,
    device_id TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (workspace_id, id)
);

-- Schema info table
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_auth_accounts_user ON auth_accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_members_user ON workspace_members(user_id);
CREATE INDEX IF NOT EXISTS idx_workspaces_deleted ON workspaces(deleted);
CREATE INDEX IF NOT EXISTS idx_invites_workspace_email ON invites(workspace_id, email, status);
CREATE INDEX IF NOT EXISTS idx_change_log_pull ON change_log(workspace_id, server_version);
CREATE INDEX IF NOT EXISTS idx_change_log_gc ON change_log(workspace_id, server_version, created_at);
CREATE INDEX IF NOT EXISTS idx_tombstones_gc ON tombstones(workspace_id, server_version, created_at);
`

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add users active workspace index",
		SQL: `CREATE INDEX IF NOT EXISTS idx_users_active_workspace ON users(active_workspace_id);
		CREATE INDEX IF NOT EXISTS idx_change_log_table ON change_log(workspace_id, table_name, server_version);`,
	},
}
