package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medcabinet/cabinet/internal/platform/cache"
	"github.com/medcabinet/cabinet/internal/platform/db"
)

// Backend names a persistence implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// IsValid reports whether b names a supported backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendRedis:
		return true
	default:
		return false
	}
}

// Options selects and configures a backend.
type Options struct {
	Backend    Backend
	Namespace  string
	SQLitePath string
	PGDSN      string
	RedisAddr  string
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Open builds the configured backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Collection, CleanupFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }
	switch opts.Backend {
	case BackendMemory:
		logger.Info("storage backend ready", slog.String("backend", string(opts.Backend)))
		return NewMemory(opts.Namespace), noop, nil
	case BackendSQLite:
		store, err := NewSQLite(opts.SQLitePath, opts.Namespace)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storage backend ready", slog.String("backend", string(opts.Backend)), slog.String("path", opts.SQLitePath))
		return store, store.Close, nil
	case BackendPostgres:
		pool, err := db.New(ctx, opts.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgres(pool, opts.Namespace)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("storage backend ready", slog.String("backend", string(opts.Backend)))
		return store, func() error { pool.Close(); return nil }, nil
	case BackendRedis:
		client, err := cache.New(ctx, opts.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storage backend ready", slog.String("backend", string(opts.Backend)), slog.String("addr", opts.RedisAddr))
		return NewRedis(client, opts.Namespace), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("storage: unsupported backend %q", opts.Backend)
	}
}
