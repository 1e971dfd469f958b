package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/mentor-portal/internal/config"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "plain", "session"), ""),
		"sealed": NewFileStore(filepath.Join(dir, "sealed", "session"), "", WithSecret("s3cret")),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok, "fresh store must be absent")

			require.NoError(t, store.Save(ctx, "first"))
			require.NoError(t, store.Save(ctx, "second"))
			got, ok, err := store.Get(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", got)

			require.NoError(t, store.Remove(ctx))
			_, ok, err = store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			// removing an absent entry is not an error and changes nothing
			require.NoError(t, store.Remove(ctx))
			_, ok, err = store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session")

	require.NoError(t, NewFileStore(path, "token").Save(ctx, "abc.def.ghi"))

	got, ok, err := NewFileStore(path, "token").Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session")
	a := NewFileStore(path, "a")
	b := NewFileStore(path, "b")

	require.NoError(t, a.Save(ctx, "token-a"))
	require.NoError(t, b.Save(ctx, "token-b"))
	require.NoError(t, a.Remove(ctx))

	_, ok, err := a.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := b.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-b", got)
}

func TestSealedFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session")

	require.NoError(t, NewFileStore(path, "", WithSecret("right")).Save(ctx, "jwt-value"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "jwt-value")

	got, ok, err := NewFileStore(path, "", WithSecret("right")).Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "jwt-value", got)

	_, ok, err = NewFileStore(path, "", WithSecret("wrong")).Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "unsealable file reads as absent")
}

func TestFileStoreCorruptFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, ok, err := NewFileStore(path, "").Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenMemoryAndFile(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageDriverMemory}}
	opened, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, opened.Ping(context.Background()))
	opened.Close()

	cfg.Storage = config.StorageConfig{Driver: config.StorageDriverFile, FilePath: filepath.Join(t.TempDir(), "s"), Key: "token"}
	opened, err = Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, opened.Store.Save(context.Background(), "x"))

	cfg.Storage.Driver = "cookie"
	_, err = Open(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
