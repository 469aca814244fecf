package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cabinet_collections (
	key TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres stores collections as JSONB rows.
type Postgres struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgres wraps a pool; call EnsureSchema before first use.
func NewPostgres(pool *pgxpool.Pool, namespace string) *Postgres {
	return &Postgres{pool: pool, namespace: namespace}
}

// EnsureSchema creates the collections table when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("storage/postgres: ensure schema: %w", describePgError(err))
	}
	return nil
}

// Load implements Collection.
func (p *Postgres) Load(ctx context.Context, name string, dest any) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	key := Key(p.namespace, name)
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM cabinet_collections WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap("postgres", "load", key, describePgError(err))
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, wrap("postgres", "decode", key, err)
	}
	return true, nil
}

// Save implements Collection.
func (p *Postgres) Save(ctx context.Context, name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := Key(p.namespace, name)
	raw, err := json.Marshal(value)
	if err != nil {
		return wrap("postgres", "encode", key, err)
	}
	const query = `
		INSERT INTO cabinet_collections (key, payload, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
	if _, err := p.pool.Exec(ctx, query, key, raw); err != nil {
		return wrap("postgres", "save", key, describePgError(err))
	}
	return nil
}

func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (sqlstate %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return err
}
