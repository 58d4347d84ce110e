package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"ventureos/internal/domain"
)

// HashAgentKey returns a stable SHA-256 hex digest for the provided key.
func HashAgentKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// InsertAgentKey stores a hashed agent key. KeyHash must already contain the
// hashed value.
func (r Repo) InsertAgentKey(ctx context.Context, key domain.AgentKey) error {
	if key.ID == "" {
		return errors.New("id required")
	}
	if key.KeyHash == "" {
		return errors.New("key_hash required")
	}
	if key.CreatedAt == "" {
		key.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO agent_keys(id, name, key_hash, created_at) VALUES (?,?,?,?)`,
		key.ID, nullable(key.Name), key.KeyHash, key.CreatedAt)
	return err
}

// GetAgentKeyByHash returns an agent key by its hashed value.
func (r Repo) GetAgentKeyByHash(ctx context.Context, hash string) (domain.AgentKey, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at FROM agent_keys WHERE key_hash=? LIMIT 1`, hash)
	var key domain.AgentKey
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.AgentKey{}, ErrNotFound
	}
	if err != nil {
		return domain.AgentKey{}, err
	}
	return key, nil
}

// ListAgentKeys returns all agent keys.
func (r Repo) ListAgentKeys(ctx context.Context) ([]domain.AgentKey, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, COALESCE(name,''), key_hash, created_at FROM agent_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.AgentKey
	for rows.Next() {
		var key domain.AgentKey
		if err := rows.Scan(&key.ID, &key.Name, &key.KeyHash, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteAgentKey deletes an agent key by ID.
func (r Repo) DeleteAgentKey(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM agent_keys WHERE id=?`, id)
	return err
}
