package model

import "time"

// APIKey is the local metadata record for an issued key. The raw secret is
// never persisted; only the credential store's key ID and a short prefix for
// identification are kept.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	AppID      string     `json:"app_id" db:"app_id"`
	KeyID      string     `json:"-" db:"key_id"` // credential store identifier, never expose
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // First 8 chars for identification
	Name       string     `json:"name" db:"name"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"` // nil = never expires
}
