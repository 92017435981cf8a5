package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Server is one deployment target. Paths enumerates the path keys the
// receiver accepts; uploads referencing anything else are rejected before
// network I/O.
type Server struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Paths     []string `json:"paths"`
	IsDefault bool     `json:"isDefault"`
	CreatedAt string   `json:"createdAt"`
}

// HasPathKey reports whether key is whitelisted for this server.
func (s Server) HasPathKey(key string) bool {
	for _, p := range s.Paths {
		if p == key {
			return true
		}
	}
	return false
}

// SaveServer inserts or updates a server. An empty ID creates a new record
// with a generated identifier; updates preserve created_at. The IsDefault
// field is ignored here: SetDefaultServer is the only operation that flips
// the default flag, so an upsert can neither mint a second default nor
// silently clear the current one.
func (d *DB) SaveServer(s Server) (Server, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
		s.CreatedAt = time.Now().Format(time.RFC3339)
	}
	s.IsDefault = false

	pathsJSON, err := json.Marshal(s.Paths)
	if err != nil {
		return Server{}, err
	}

	_, err = d.Exec(`
		INSERT INTO servers (id, name, url, paths, is_default, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			paths = excluded.paths
	`, s.ID, s.Name, s.URL, string(pathsJSON), s.CreatedAt)
	if err != nil {
		return Server{}, err
	}
	return s, nil
}

// Servers returns all servers ordered by creation time.
func (d *DB) Servers() ([]Server, error) {
	rows, err := d.Query("SELECT id, name, url, paths, is_default, created_at FROM servers ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []Server
	for rows.Next() {
		var s Server
		var pathsJSON string
		var isDefault int
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &pathsJSON, &isDefault, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pathsJSON), &s.Paths); err != nil {
			return nil, err
		}
		s.IsDefault = isDefault == 1
		servers = append(servers, s)
	}
	return servers, rows.Err()
}

// Server returns the server with the given id, or ErrNotFound.
func (d *DB) Server(id string) (*Server, error) {
	row := d.QueryRow("SELECT id, name, url, paths, is_default, created_at FROM servers WHERE id = ?", id)

	var s Server
	var pathsJSON string
	var isDefault int
	if err := row.Scan(&s.ID, &s.Name, &s.URL, &pathsJSON, &isDefault, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(pathsJSON), &s.Paths); err != nil {
		return nil, err
	}
	s.IsDefault = isDefault == 1
	return &s, nil
}

// DefaultServer returns the server marked default, or ErrNotFound when no
// default is set.
func (d *DB) DefaultServer() (*Server, error) {
	row := d.QueryRow("SELECT id FROM servers WHERE is_default = 1")
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d.Server(id)
}

// DeleteServer removes a server. Deleting the current default leaves no
// default; a new one must be set explicitly.
func (d *DB) DeleteServer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.Exec("DELETE FROM servers WHERE id = ?", id)
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

// SetDefaultServer makes the given server the single default, clearing any
// previous one in the same transaction.
func (d *DB) SetDefaultServer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE servers SET is_default = 0"); err != nil {
		return err
	}
	res, err := tx.Exec("UPDATE servers SET is_default = 1 WHERE id = ?", id)
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
	return tx.Commit()
}
