package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores each collection as one row of an embedded database file.
type SQLite struct {
	db        *sql.DB
	namespace string
}

// NewSQLite opens (creating when needed) the database at dbPath and applies
// migrations.
func NewSQLite(dbPath, namespace string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single connection keeps writes serialised within the process
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &SQLite{db: db, namespace: namespace}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load implements Collection.
func (s *SQLite) Load(ctx context.Context, name string, dest any) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	key := Key(s.namespace, name)
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("sqlite", "load", key, err)
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, wrap("sqlite", "decode", key, err)
	}
	return true, nil
}

// Save implements Collection.
func (s *SQLite) Save(ctx context.Context, name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := Key(s.namespace, name)
	raw, err := json.Marshal(value)
	if err != nil {
		return wrap("sqlite", "encode", key, err)
	}
	const query = `
		INSERT INTO collections (key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(raw), time.Now().UTC()); err != nil {
		return wrap("sqlite", "save", key, err)
	}
	return nil
}
