package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ventureos/internal/config"
	"ventureos/internal/domain"
	"ventureos/internal/repo"
)

// Seed writes the initial system_config rows a fresh workspace needs.
// Existing keys are left alone.
func Seed(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	now := time.Now().UTC().Format(time.RFC3339)
	defaults := map[string]any{
		"company":    map[string]string{"name": cfg.Company.Name},
		"automation": map[string]bool{"enabled": true},
	}
	for key, value := range defaults {
		if _, err := r.GetSystemConfig(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if err := r.UpsertSystemConfig(ctx, key, string(raw), now); err != nil {
			return fmt.Errorf("seed system config %s: %w", key, err)
		}
	}
	return nil
}

// NewAgentKey mints a random agent key, stores its hash, and returns the
// plaintext. The plaintext is shown once and never persisted.
func NewAgentKey(ctx context.Context, r repo.Repo, name string) (string, domain.AgentKey, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.AgentKey{}, err
	}
	plaintext := "vos_" + hex.EncodeToString(buf)
	key := domain.AgentKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   repo.HashAgentKey(plaintext),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.InsertAgentKey(ctx, key); err != nil {
		return "", domain.AgentKey{}, err
	}
	return plaintext, key, nil
}
