package serverdb

import (
	"fmt"
	"log/slog"
	"os"
)

// StoreConfig describes how the embedded database is opened.
type StoreConfig struct {
	Path          string // filesystem path, or ":memory:"
	JournalMode   string // PRAGMA journal_mode, default WAL
	Synchronous   string // PRAGMA synchronous, default NORMAL
	AllowInMemory bool   // permit in-memory storage outside tests
	Strict        bool   // refuse in-memory storage outright
	TestMode      bool   // set by tests; relaxes the DB_PATH requirement
}

// StoreConfigFromEnv reads the storage configuration from the environment.
func StoreConfigFromEnv() StoreConfig {
	cfg := StoreConfig{
		Path:        os.Getenv("DB_PATH"),
		JournalMode: os.Getenv("PRAGMA_JOURNAL_MODE"),
		Synchronous: os.Getenv("PRAGMA_SYNCHRONOUS"),
	}
	if v := os.Getenv("ALLOW_IN_MEMORY"); v == "true" || v == "1" {
		cfg.AllowInMemory = true
	}
	if v := os.Getenv("STRICT"); v == "true" || v == "1" {
		cfg.Strict = true
	}
	return cfg
}

// resolvePath applies the startup rules: a missing DB_PATH is only
// tolerated in test mode or with ALLOW_IN_MEMORY, and STRICT refuses
// in-memory storage entirely.
func (cfg StoreConfig) resolvePath() (string, error) {
	path := cfg.Path
	if path == "" {
		if cfg.TestMode {
			return ":memory:", nil
		}
		if !cfg.AllowInMemory {
			return "", fmt.Errorf("DB_PATH is not set: configure DB_PATH, or set ALLOW_IN_MEMORY=true for an ephemeral store")
		}
		path = ":memory:"
	}

	if isMemoryPath(path) {
		if cfg.Strict {
			return "", fmt.Errorf("STRICT is set: in-memory storage is not permitted")
		}
		if !cfg.TestMode {
			slog.Warn("using in-memory storage; all data is lost on shutdown")
		}
	}

	return path, nil
}
