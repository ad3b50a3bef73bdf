package credstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/maktabahq/maktaba/internal/model"
)

// Local is an embedded credential authority for self-hosted deployments and
// tests. It shares the metadata store's sqlx handle but owns its own table:
// secrets are stored as SHA-256 hashes and can never be recovered.
type Local struct {
	db *sqlx.DB
}

// NewLocal creates a Local credential store on top of an existing database
// handle and applies its migration. It is intended for the default embedded
// SQLite deployment; hosted deployments use Remote.
func NewLocal(db *sqlx.DB) (*Local, error) {
	l := &Local{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate credentials table: %w", err)
	}
	return l, nil
}

func (l *Local) migrate() error {
	const q = `CREATE TABLE IF NOT EXISTS credentials (
		key_id TEXT PRIMARY KEY,
		secret_hash TEXT UNIQUE NOT NULL,
		key_prefix TEXT NOT NULL,
		app_id TEXT NOT NULL,
		libraries_json TEXT NOT NULL DEFAULT '[]',
		is_active INTEGER NOT NULL DEFAULT 1,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	)`
	if _, err := l.db.Exec(q); err != nil {
		return err
	}
	_, err := l.db.Exec("CREATE INDEX IF NOT EXISTS idx_credentials_hash ON credentials(secret_hash)")
	return err
}

type credentialRow struct {
	KeyID         string     `db:"key_id"`
	SecretHash    string     `db:"secret_hash"`
	KeyPrefix     string     `db:"key_prefix"`
	AppID         string     `db:"app_id"`
	LibrariesJSON string     `db:"libraries_json"`
	IsActive      bool       `db:"is_active"`
	ExpiresAt     *time.Time `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// Issue mints a new secret: "mk_" followed by 64 hex characters. Only the
// hash is persisted.
func (l *Local) Issue(ctx context.Context, appID string, libraries []model.Library, name string, expiresAt *time.Time) (*Credential, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	secret := SecretPrefix + hex.EncodeToString(randomBytes)

	librariesJSON, err := json.Marshal(libraries)
	if err != nil {
		return nil, fmt.Errorf("marshal libraries: %w", err)
	}

	row := credentialRow{
		KeyID:         uuid.NewString(),
		SecretHash:    HashSecret(secret),
		KeyPrefix:     Prefix(secret),
		AppID:         appID,
		LibrariesJSON: string(librariesJSON),
		IsActive:      true,
		ExpiresAt:     expiresAt,
		CreatedAt:     time.Now().UTC(),
	}

	const q = `INSERT INTO credentials
		(key_id, secret_hash, key_prefix, app_id, libraries_json, is_active, expires_at, created_at)
		VALUES
		(:key_id, :secret_hash, :key_prefix, :app_id, :libraries_json, :is_active, :expires_at, :created_at)`

	if _, err := l.db.NamedExecContext(ctx, q, row); err != nil {
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return &Credential{KeyID: row.KeyID, Secret: secret}, nil
}

// Verify looks up the secret's hash. Unknown, revoked, and expired secrets
// all come back Valid=false; there is nothing to distinguish for callers.
func (l *Local) Verify(ctx context.Context, secret string) (*Verification, error) {
	var row credentialRow
	q := l.db.Rebind("SELECT * FROM credentials WHERE secret_hash = ?")
	if err := l.db.GetContext(ctx, &row, q, HashSecret(secret)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Verification{Valid: false}, nil
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if !row.IsActive {
		return &Verification{Valid: false}, nil
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(time.Now()) {
		return &Verification{Valid: false}, nil
	}

	var libraries []model.Library
	if err := json.Unmarshal([]byte(row.LibrariesJSON), &libraries); err != nil {
		return nil, fmt.Errorf("unmarshal libraries: %w", err)
	}

	return &Verification{
		Valid:     true,
		KeyID:     row.KeyID,
		AppID:     row.AppID,
		Libraries: libraries,
	}, nil
}

// Invalidate deactivates a credential. Verification fails from that point
// on; the row is kept for audit.
func (l *Local) Invalidate(ctx context.Context, keyID string) error {
	q := l.db.Rebind("UPDATE credentials SET is_active = 0 WHERE key_id = ?")
	result, err := l.db.ExecContext(ctx, q, keyID)
	if err != nil {
		return fmt.Errorf("invalidate credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invalidate credential rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invalidate credential: key %q not found", keyID)
	}
	return nil
}

// HashSecret returns the hex-encoded SHA-256 hash of a raw secret.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}
