package kv

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract shared by every backend against a clean namespace
func exerciseStore(t *testing.T, store Store, ns string) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, ns+"missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, ns+"b", []byte("2"), 0))
	require.NoError(t, store.Put(ctx, ns+"a", []byte("1"), time.Hour))

	keys, err := store.List(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, []string{ns + "a", ns + "b"}, keys)

	ok, err := store.CompareAndSwap(ctx, ns+"a", []byte("1"), []byte("3"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CompareAndSwap(ctx, ns+"a", []byte("1"), []byte("4"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CompareAndSwap(ctx, ns+"c", nil, []byte("5"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, ns+"a")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("KV_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KV_TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ns := "test:" + time.Now().Format("150405.000000") + ":"
	t.Cleanup(func() {
		_, _ = db.Exec("DELETE FROM kv_entries WHERE key LIKE $1", likePrefix(ns))
	})

	exerciseStore(t, NewPostgresStore(db, zerolog.Nop()), ns)
}

func TestRedisStore_Integration(t *testing.T) {
	url := os.Getenv("KV_TEST_REDIS_URL")
	if url == "" {
		t.Skip("KV_TEST_REDIS_URL not set")
	}

	store, err := NewRedisStore(context.Background(), url, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	ns := "test:" + time.Now().Format("150405.000000") + ":"
	t.Cleanup(func() {
		keys, _ := store.List(context.Background(), ns)
		for _, key := range keys {
			store.client.Del(context.Background(), key)
		}
	})

	exerciseStore(t, store, ns)
}
