// Package credstore abstracts the credential authority that mints and
// verifies API key secrets. The gateway trusts it as the single source of
// truth for key liveness and entitlements; the relational store only keeps
// display metadata.
package credstore

import (
	"context"
	"time"

	"github.com/maktabahq/maktaba/internal/model"
)

// SecretPrefix starts every issued secret. The first 8 characters of a
// secret serve as its display prefix.
const SecretPrefix = "mk_"

// PrefixLen is the number of leading secret characters kept as metadata.
const PrefixLen = 8

// Credential is the result of issuing a key. Secret is returned exactly
// once and never stored in recoverable form.
type Credential struct {
	KeyID  string
	Secret string
}

// Verification is the result of checking a presented secret. When Valid is
// false the other fields are zero. Libraries is the entitlement snapshot
// embedded at issuance.
type Verification struct {
	Valid     bool
	KeyID     string
	AppID     string
	Libraries []model.Library
}

// Store mints, verifies, and invalidates API key credentials.
type Store interface {
	// Issue creates a credential scoped to the given app and library set.
	// expiresAt of nil means the key never expires.
	Issue(ctx context.Context, appID string, libraries []model.Library, name string, expiresAt *time.Time) (*Credential, error)

	// Verify checks a presented secret. An unknown, revoked, or expired
	// secret yields Valid=false with a nil error; errors are reserved for
	// infrastructure failures.
	Verify(ctx context.Context, secret string) (*Verification, error)

	// Invalidate permanently revokes a credential by key ID.
	Invalidate(ctx context.Context, keyID string) error
}

// Prefix returns the display prefix of a raw secret.
func Prefix(secret string) string {
	if len(secret) < PrefixLen {
		return secret
	}
	return secret[:PrefixLen]
}
