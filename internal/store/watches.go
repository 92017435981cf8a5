package store

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WatchConfig binds a folder to a deployment target. Empty Patterns means
// every file matches.
type WatchConfig struct {
	ID         string   `json:"id"`
	FolderPath string   `json:"folderPath"`
	ServerID   string   `json:"serverId"`
	PathKey    string   `json:"pathKey"`
	Patterns   []string `json:"patterns"`
	DebounceMs int      `json:"debounceMs"`
	Enabled    bool     `json:"enabled"`
}

// SaveWatch inserts or updates a watch config. An empty ID creates a new
// record with a generated identifier.
func (d *DB) SaveWatch(w WatchConfig) (WatchConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.DebounceMs <= 0 {
		w.DebounceMs = 1000
	}

	patternsJSON, err := json.Marshal(w.Patterns)
	if err != nil {
		return WatchConfig{}, err
	}

	_, err = d.Exec(`
		INSERT INTO watches (id, folder_path, server_id, path_key, patterns, debounce_ms, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_path = excluded.folder_path,
			server_id = excluded.server_id,
			path_key = excluded.path_key,
			patterns = excluded.patterns,
			debounce_ms = excluded.debounce_ms,
			enabled = excluded.enabled
	`, w.ID, w.FolderPath, w.ServerID, w.PathKey, string(patternsJSON),
		w.DebounceMs, boolToInt(w.Enabled))
	if err != nil {
		return WatchConfig{}, err
	}
	return w, nil
}

// Watches returns all watch configs.
func (d *DB) Watches() ([]WatchConfig, error) {
	rows, err := d.Query("SELECT id, folder_path, server_id, path_key, patterns, debounce_ms, enabled FROM watches")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []WatchConfig
	for rows.Next() {
		var w WatchConfig
		var patternsJSON string
		var enabled int
		if err := rows.Scan(&w.ID, &w.FolderPath, &w.ServerID, &w.PathKey,
			&patternsJSON, &w.DebounceMs, &enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(patternsJSON), &w.Patterns); err != nil {
			return nil, err
		}
		w.Enabled = enabled == 1
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

// Watch returns the watch config with the given id, or ErrNotFound.
func (d *DB) Watch(id string) (*WatchConfig, error) {
	watches, err := d.Watches()
	if err != nil {
		return nil, err
	}
	for i := range watches {
		if watches[i].ID == id {
			return &watches[i], nil
		}
	}
	return nil, ErrNotFound
}

// DeleteWatch removes a watch config.
func (d *DB) DeleteWatch(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.Exec("DELETE FROM watches WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
