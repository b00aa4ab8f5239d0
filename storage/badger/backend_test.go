package badger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wellspring/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := OpenBackend(path, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTransaction(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTransaction_CommitAndRollback(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	write := func(ctx context.Context, key, val string) error {
		return backend.run(ctx, true, func(tx *badger.Txn) error {
			return tx.Set([]byte(key), []byte(val))
		})
	}
	read := func(key string) error {
		return backend.run(ctx, false, func(tx *badger.Txn) error {
			return getValue(tx, []byte(key), func([]byte) error { return nil })
		})
	}

	err = backend.WithTransaction(ctx, func(ctx context.Context) error {
		return write(ctx, "k1", "v1")
	})
	require.NoError(t, err)
	assert.NoError(t, read("k1"))

	boom := errors.New("boom")
	err = backend.WithTransaction(ctx, func(ctx context.Context) error {
		if err := write(ctx, "k2", "v2"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, read("k2"), storage.ErrNotFound)
}

func TestWithTransaction_Nested(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	err = backend.WithTransaction(ctx, func(outer context.Context) error {
		return backend.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, txFromContext(outer), txFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
}
