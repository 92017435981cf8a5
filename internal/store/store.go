// Package store owns the agent's persistent state: the server registry,
// the signing identity, schedules, watch configs and the upload history.
// Everything lives in a single SQLite database; every mutation goes through
// a store method and is written through immediately.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an operation references a record id that
// does not exist.
var ErrNotFound = errors.New("record not found")

type DB struct {
	*sql.DB
	mu sync.Mutex
}

// DataDir returns the per-OS directory holding the agent's database.
func DataDir() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
	case "darwin":
		dir = filepath.Join(os.Getenv("HOME"), "Library", "Application Support")
	default:
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "Shipper")
}

// Open opens (creating if needed) the database at dbPath. An empty path
// falls back to the standard data directory.
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = filepath.Join(DataDir(), "shipper.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}

	d := &DB{DB: sqlDB}
	if err := d.init(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS servers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		paths TEXT DEFAULT '[]',
		is_default INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS identity (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		private_key TEXT,
		public_key TEXT,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_id TEXT,
		server_name TEXT,
		path_key TEXT,
		filename TEXT,
		file_size INTEGER,
		status TEXT,
		error_msg TEXT,
		uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		name TEXT,
		cron_expr TEXT,
		source_path TEXT,
		server_id TEXT,
		path_key TEXT,
		extract INTEGER DEFAULT 0,
		enabled INTEGER DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS watches (
		id TEXT PRIMARY KEY,
		folder_path TEXT,
		server_id TEXT,
		path_key TEXT,
		patterns TEXT DEFAULT '[]',
		debounce_ms INTEGER DEFAULT 1000,
		enabled INTEGER DEFAULT 1
	);
	`
	if _, err := d.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
