package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maktabahq/maktaba/internal/credstore"
	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// KeyService owns the API key issuance and revocation policy. The credential
// store is authoritative for the secret; the metadata store only carries
// what the dashboard needs.
type KeyService struct {
	store  *store.Store
	creds  credstore.Store
	logger *slog.Logger
}

// NewKeyService creates a KeyService.
func NewKeyService(st *store.Store, creds credstore.Store, logger *slog.Logger) *KeyService {
	return &KeyService{store: st, creds: creds, logger: logger}
}

// Issue mints a key for one of the owner's apps and returns the metadata
// record together with the raw secret. The secret is shown exactly once.
//
// The entitlement set is a snapshot of the app's libraries at this moment;
// editing the app later never changes what already-issued keys can reach.
func (s *KeyService) Issue(ctx context.Context, userID, appID, name string, expiresAt *time.Time) (*model.APIKey, string, error) {
	if err := validate.APIKeyName(name); err != nil {
		return nil, "", err
	}

	app, err := s.store.GetAppForOwner(ctx, userID, appID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	cred, err := s.creds.Issue(ctx, app.ID, app.Libraries, name, expiresAt)
	if err != nil {
		return nil, "", fmt.Errorf("issue credential: %w", err)
	}

	key := &model.APIKey{
		AppID:     app.ID,
		KeyID:     cred.KeyID,
		KeyPrefix: credstore.Prefix(cred.Secret),
		Name:      name,
		ExpiresAt: expiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		// The credential exists remotely but has no local record. There is
		// no automatic reconciliation; the key ID in the log is enough to
		// clean up by hand.
		s.logger.Error("api key metadata write failed after issuance",
			"app_id", app.ID, "credential_key_id", cred.KeyID, "error", err)
		return nil, "", fmt.Errorf("store api key metadata: %w", err)
	}

	return key, cred.Secret, nil
}

// Revoke invalidates a key at the credential store and then removes its
// metadata. Revocation at the authority must succeed first: a key that is
// gone locally but still verifies remotely would be invisible and alive.
func (s *KeyService) Revoke(ctx context.Context, userID, keyID string) error {
	key, err := s.store.GetAPIKeyForOwner(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.creds.Invalidate(ctx, key.KeyID); err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}

	if err := s.store.DeleteAPIKey(ctx, key.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// List returns all key metadata across the owner's apps, newest first.
func (s *KeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	return s.store.ListAPIKeysByOwner(ctx, userID)
}

// Get returns one key's metadata, owner-scoped.
func (s *KeyService) Get(ctx context.Context, userID, keyID string) (*model.APIKey, error) {
	key, err := s.store.GetAPIKeyForOwner(ctx, userID, keyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return key, nil
}
