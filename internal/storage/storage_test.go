package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func exerciseCollection(t *testing.T, store Collection) {
	t.Helper()
	ctx := context.Background()

	var got []record
	found, err := store.Load(ctx, "invoices", &got)
	require.NoError(t, err)
	require.False(t, found)

	want := []record{{ID: "a", Total: 100}, {ID: "b", Total: 250}}
	require.NoError(t, store.Save(ctx, "invoices", want))

	found, err = store.Load(ctx, "invoices", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)

	// whole collection overwrite
	require.NoError(t, store.Save(ctx, "invoices", []record{{ID: "c", Total: 1}}))
	got = nil
	_, err = store.Load(ctx, "invoices", &got)
	require.NoError(t, err)
	require.Equal(t, []record{{ID: "c", Total: 1}}, got)

	// an empty collection is still "found"
	require.NoError(t, store.Save(ctx, "payments", []record{}))
	var payments []record
	found, err = store.Load(ctx, "payments", &payments)
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, payments)

	_, err = store.Load(ctx, " ", &got)
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestKeyDefaultsNamespace(t *testing.T) {
	require.Equal(t, "cabinet:invoices", Key("", "invoices"))
	require.Equal(t, "clinic:payments", Key("clinic", "payments"))
}

func TestMemoryCollection(t *testing.T) {
	store := NewMemory("test")
	exerciseCollection(t, store)
	require.ElementsMatch(t, []string{"test:invoices", "test:payments"}, store.Keys())
}

func TestMemoryDoesNotShareSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemory("")
	values := []record{{ID: "a", Total: 1}}
	require.NoError(t, store.Save(ctx, "x", values))
	values[0].Total = 99

	var got []record
	_, err := store.Load(ctx, "x", &got)
	require.NoError(t, err)
	require.Equal(t, 1, got[0].Total)
}

func TestSQLiteCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "cabinet.db")
	store, err := NewSQLite(path, "test")
	require.NoError(t, err)
	exerciseCollection(t, store)

	// reopening runs migrations again without error and keeps data
	require.NoError(t, store.Close())
	reopened, err := NewSQLite(path, "test")
	require.NoError(t, err)
	defer reopened.Close()
	var got []record
	found, err := reopened.Load(context.Background(), "invoices", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
}

func TestRedisCollection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client, "test")
	exerciseCollection(t, store)
	require.True(t, mr.Exists("test:invoices"))
}

func TestPostgresCollection(t *testing.T) {
	dsn := os.Getenv("CABINET_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("CABINET_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	_, _ = pool.Exec(ctx, "DROP TABLE IF EXISTS cabinet_collections")

	store := NewPostgres(pool, "test")
	require.NoError(t, store.EnsureSchema(ctx))
	exerciseCollection(t, store)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Backend: "floppy"}, nil)
	require.Error(t, err)
	require.False(t, Backend("floppy").IsValid())
	require.True(t, BackendSQLite.IsValid())
}

func TestOpenMemoryAndRedis(t *testing.T) {
	ctx := context.Background()
	store, cleanup, err := Open(ctx, Options{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)
	require.NoError(t, cleanup())

	mr := miniredis.RunT(t)
	store, cleanup, err = Open(ctx, Options{Backend: BackendRedis, RedisAddr: mr.Addr()}, nil)
	require.NoError(t, err)
	require.IsType(t, &Redis{}, store)
	require.NoError(t, cleanup())
}
