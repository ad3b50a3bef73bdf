package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maktabahq/maktaba/internal/model"
)

// CreateAPIKey inserts an API key metadata record. The ID and CreatedAt
// fields are populated on success. The raw secret never reaches the store;
// callers persist only the credential store's key_id and a display prefix.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys
		(id, app_id, key_id, key_prefix, name, created_at, expires_at)
		VALUES
		(:id, :app_id, :key_id, :key_prefix, :name, :created_at, :expires_at)`

	if _, err := s.db.NamedExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyForOwner returns an API key by ID when its app belongs to userID.
// Ownership is resolved in the join; non-owners get ErrNotFound.
func (s *Store) GetAPIKeyForOwner(ctx context.Context, userID, keyID string) (*model.APIKey, error) {
	var key model.APIKey
	q := s.db.Rebind(`SELECT k.* FROM api_keys k
		JOIN apps a ON a.id = k.app_id
		WHERE k.id = ? AND a.user_id = ?`)
	if err := s.db.GetContext(ctx, &key, q, keyID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &key, nil
}

// ListAPIKeysByOwner returns all API keys across the owner's apps, newest
// first.
func (s *Store) ListAPIKeysByOwner(ctx context.Context, userID string) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := s.db.Rebind(`SELECT k.* FROM api_keys k
		JOIN apps a ON a.id = k.app_id
		WHERE a.user_id = ?
		ORDER BY k.created_at DESC`)
	if err := s.db.SelectContext(ctx, &keys, q, userID); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ListAPIKeysByApp returns the keys issued for a single app, newest first.
func (s *Store) ListAPIKeysByApp(ctx context.Context, appID string) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := s.db.Rebind("SELECT * FROM api_keys WHERE app_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &keys, q, appID); err != nil {
		return nil, fmt.Errorf("list api keys by app: %w", err)
	}
	return keys, nil
}

// DeleteAPIKey removes an API key metadata record by ID.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	q := s.db.Rebind("DELETE FROM api_keys WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAPIKeyLastUsed sets last_used_at for the key identified by the
// credential store's key ID. Called fire-and-forget on the gateway path.
func (s *Store) TouchAPIKeyLastUsed(ctx context.Context, credentialKeyID string) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE api_keys SET last_used_at = ? WHERE key_id = ?")
	result, err := s.db.ExecContext(ctx, q, now, credentialKeyID)
	if err != nil {
		return fmt.Errorf("touch api key last used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
