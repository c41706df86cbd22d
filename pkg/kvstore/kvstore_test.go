package kvstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/pkg/database"
	"github.com/menugr/menugr/pkg/kvstore"
)

// exercise runs the contract every driver must honour.
func exercise(t *testing.T, s kvstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "cart_demo")
	require.NoError(t, err)
	assert.False(t, ok, "absent key must report ok=false")

	require.NoError(t, s.Set(ctx, "cart_demo", `{"items":[]}`))
	v, ok, err := s.Get(ctx, "cart_demo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"items":[]}`, v)

	require.NoError(t, s.Set(ctx, "cart_demo", `{"items":[1]}`))
	v, _, _ = s.Get(ctx, "cart_demo")
	assert.Equal(t, `{"items":[1]}`, v, "last writer wins")

	require.NoError(t, s.Delete(ctx, "cart_demo"))
	require.NoError(t, s.Delete(ctx, "cart_demo"), "deleting twice is fine")
	_, ok, _ = s.Get(ctx, "cart_demo")
	assert.False(t, ok)

	assert.True(t, errors.Is(s.Set(ctx, " ", "x"), kvstore.ErrEmptyKey))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, kvstore.NewMemory())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := kvstore.NewFile(dir)
	require.NoError(t, err)
	exercise(t, s)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := kvstore.NewFile(filepath.Join(dir, "carts"))
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "cart_../../etc", "x"))
	entries, err := os.ReadDir(filepath.Join(dir, "carts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the key must stay inside the root")
}

func TestPrefixedIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	base := kvstore.NewMemory()
	a := kvstore.Prefixed(base, "session:a:")
	b := kvstore.Prefixed(base, "session:b:")

	require.NoError(t, a.Set(ctx, "cart_demo", "A"))
	_, ok, err := b.Get(ctx, "cart_demo")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, _ := base.Get(ctx, "session:a:cart_demo")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	exercise(t, b)
}

func TestPrefixedEmptyReturnsInner(t *testing.T) {
	base := kvstore.NewMemory()
	assert.Same(t, base, kvstore.Prefixed(base, "").(*kvstore.Memory))
}

func TestSQLStoreOnSQLite(t *testing.T) {
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "carts.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	s, err := kvstore.NewSQL(db)
	require.NoError(t, err)
	defer s.Close(context.Background())
	exercise(t, s)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := kvstore.Open(context.Background(), "floppy")
	assert.Error(t, err)

	s, err := kvstore.Open(context.Background(), "memory")
	require.NoError(t, err)
	assert.IsType(t, &kvstore.Memory{}, s)
	assert.NoError(t, kvstore.Close(context.Background(), s))
}

func TestOpenRedisUnreachable(t *testing.T) {
	defer config.Set("REDIS_ADDR", "localhost:6379")
	config.Set("REDIS_ADDR", "127.0.0.1:1")

	_, err := kvstore.Open(context.Background(), "redis")
	assert.Error(t, err)
}

func TestOpenS3RequiresBucket(t *testing.T) {
	config.Set("S3_BUCKET", "")
	_, err := kvstore.Open(context.Background(), "s3")
	assert.ErrorContains(t, err, "S3_BUCKET")
}

func TestOpenMongoUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for server selection to time out")
	}
	defer config.Set("MONGO_URI", "mongodb://localhost:27017")
	config.Set("MONGO_URI", "mongodb://127.0.0.1:1")

	_, err := kvstore.Open(context.Background(), "mongo")
	assert.ErrorContains(t, err, "kvstore/mongo")
}
