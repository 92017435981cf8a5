package store

import (
	"database/sql"
	"time"
)

// Identity is the active signing key pair. Exactly one identity exists at a
// time; saving overwrites it wholesale. The private key never leaves local
// storage.
type Identity struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	UpdatedAt  string `json:"updatedAt"`
}

// SaveIdentity persists the key pair as the active identity, replacing any
// previous one.
func (d *DB) SaveIdentity(privateKey, publicKey string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	_, err := d.Exec(`
		INSERT INTO identity (id, private_key, public_key, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			private_key = excluded.private_key,
			public_key = excluded.public_key,
			updated_at = excluded.updated_at
	`, privateKey, publicKey, now)
	return err
}

// Identity returns the active identity, or nil when none is configured.
func (d *DB) Identity() (*Identity, error) {
	var id Identity
	err := d.QueryRow("SELECT private_key, public_key, updated_at FROM identity WHERE id = 1").
		Scan(&id.PrivateKey, &id.PublicKey, &id.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
