package store

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	for _, m := range migrationStatements(s.driver) {
		if _, err := s.db.Exec(m); err != nil {
			// SQLite ALTER TABLE ADD COLUMN fails if the column already
			// exists; treat "duplicate column" as a no-op so migrations
			// stay idempotent.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func migrationStatements(driver string) []string {
	switch driver {
	case DriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				last_login_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,

			`CREATE TABLE IF NOT EXISTS apps (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				libraries_json TEXT NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,

			`CREATE TABLE IF NOT EXISTS api_keys (
				id TEXT PRIMARY KEY,
				app_id TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
				key_id TEXT NOT NULL,
				key_prefix TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				last_used_at TIMESTAMPTZ,
				expires_at TIMESTAMPTZ
			)`,

			`CREATE INDEX IF NOT EXISTS idx_apps_user_id ON apps(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_key_id ON api_keys(key_id)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_app_id ON api_keys(app_id)`,

			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT ''
			)`,
		}

	case DriverMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) PRIMARY KEY,
				email VARCHAR(255) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				last_login_at DATETIME NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE IF NOT EXISTS apps (
				id VARCHAR(36) PRIMARY KEY,
				user_id VARCHAR(36) NOT NULL,
				name VARCHAR(100) NOT NULL,
				description TEXT NOT NULL,
				libraries_json TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				CONSTRAINT fk_apps_user FOREIGN KEY (user_id) REFERENCES users(id)
			)`,

			`CREATE TABLE IF NOT EXISTS api_keys (
				id VARCHAR(36) PRIMARY KEY,
				app_id VARCHAR(36) NOT NULL,
				key_id VARCHAR(255) NOT NULL,
				key_prefix VARCHAR(16) NOT NULL,
				name VARCHAR(50) NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_used_at DATETIME NULL,
				expires_at DATETIME NULL,
				CONSTRAINT fk_api_keys_app FOREIGN KEY (app_id) REFERENCES apps(id) ON DELETE CASCADE,
				INDEX idx_api_keys_key_id (key_id)
			)`,

			"CREATE TABLE IF NOT EXISTS settings (\n\t\t\t\t`key` VARCHAR(255) PRIMARY KEY,\n\t\t\t\tvalue TEXT NOT NULL\n\t\t\t)",
		}

	default: // sqlite
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				is_active INTEGER NOT NULL DEFAULT 1,
				last_login_at DATETIME,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE IF NOT EXISTS apps (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				libraries_json TEXT NOT NULL DEFAULT '[]',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE IF NOT EXISTS api_keys (
				id TEXT PRIMARY KEY,
				app_id TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
				key_id TEXT NOT NULL,
				key_prefix TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_used_at DATETIME,
				expires_at DATETIME
			)`,

			`CREATE INDEX IF NOT EXISTS idx_apps_user_id ON apps(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_key_id ON api_keys(key_id)`,
			`CREATE INDEX IF NOT EXISTS idx_api_keys_app_id ON api_keys(app_id)`,

			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL DEFAULT ''
			)`,
		}
	}
}
