package store

// Upload outcome recorded in history.
const (
	HistorySuccess = "success"
	HistoryFailed  = "failed"
)

// HistoryEntry is one row of the append-only upload ledger. Entries are
// immutable once written.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	ServerID   string `json:"serverId"`
	ServerName string `json:"serverName"`
	PathKey    string `json:"pathKey"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"fileSize"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"errorMsg"`
	UploadedAt string `json:"uploadedAt"`
}

// AddHistory appends one entry to the ledger.
func (d *DB) AddHistory(h HistoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.Exec(`
		INSERT INTO history (server_id, server_name, path_key, filename, file_size, status, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.ServerID, h.ServerName, h.PathKey, h.Filename, h.FileSize, h.Status, h.ErrorMsg)
	return err
}

// History returns up to limit entries, most recent first.
func (d *DB) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.Query(`
		SELECT id, server_id, server_name, path_key, filename, file_size, status, error_msg, uploaded_at
		FROM history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.ServerID, &h.ServerName, &h.PathKey, &h.Filename,
			&h.FileSize, &h.Status, &h.ErrorMsg, &h.UploadedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// ClearHistory removes all entries. Irreversible.
func (d *DB) ClearHistory() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.Exec("DELETE FROM history")
	return err
}
