// Package store is the relational metadata store: users, apps, API key
// metadata, and settings. It speaks three SQL dialects through sqlx; SQLite
// is the default and needs no external service.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config selects the backing database.
type Config struct {
	// Driver is one of sqlite, postgres, mysql. Empty means sqlite.
	Driver string
	// DSN is the connection string for postgres and mysql. The MySQL DSN
	// must include parseTime=true.
	DSN string
	// DataDir is the directory holding the SQLite database file. Empty
	// means an in-memory database (used by tests).
	DataDir string
}

// Store manages Maktaba's metadata backed by a SQL database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the configured database and applies migrations.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var db *sqlx.DB
	var err error

	switch driver {
	case DriverSQLite:
		var dsn string
		if cfg.DataDir == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, "maktaba.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}

	case DriverPostgres:
		db, err = sqlx.Connect("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}

	case DriverMySQL:
		db, err = sqlx.Connect("mysql", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the active driver name.
func (s *Store) Driver() string {
	return s.driver
}

// DB exposes the underlying sqlx handle so sibling components (the local
// credential issuer) can share the connection and run their own migrations.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
