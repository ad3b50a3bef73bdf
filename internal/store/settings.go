package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSetting returns the value stored under key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var (
		value string
		q     string
	)
	if s.driver == DriverMySQL {
		q = s.db.Rebind("SELECT value FROM settings WHERE `key` = ?")
	} else {
		q = s.db.Rebind("SELECT value FROM settings WHERE key = ?")
	}
	if err := s.db.GetContext(ctx, &value, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting upserts a key/value pair.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	var q string
	if s.driver == DriverMySQL {
		q = s.db.Rebind("INSERT INTO settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)")
	} else {
		q = s.db.Rebind("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	}
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// CountUsers, CountApps, and CountAPIKeys feed the telemetry heartbeat.

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM users")
}

func (s *Store) CountApps(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM apps")
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM api_keys")
}

func (s *Store) count(ctx context.Context, q string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, q); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
