package content

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Inline(t *testing.T) {
	l := NewFileLoader()

	text, err := l.Load(context.Background(), Inline("Qi flows."))
	require.NoError(t, err)
	assert.Equal(t, "Qi flows.", text)

	_, err = l.Load(context.Background(), Inline("   "))
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "Chapter 1. Prana.")
	l := NewFileLoader()

	text, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1. Prana.", text)

	text, err = l.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1. Prana.", text)
}

func TestLoad_Root(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "relative")

	text, err := NewFileLoader(WithRoot(dir)).Load(context.Background(), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "relative", text)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLoader(WithMaxBytes(4))

	_, err := l.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = l.Load(context.Background(), writeFile(t, dir, "big.txt", "too large"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = l.Load(context.Background(), writeFile(t, dir, "bin", "\xff\xfe"))
	assert.ErrorIs(t, err, ErrNotText)

	_, err = l.Load(context.Background(), writeFile(t, dir, "blank", " \n"))
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = l.Load(context.Background(), dir)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, Inline("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.txt", "first")
	l := NewFileLoader()

	text, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0644))
	text, err = l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "first", text, "cached content is served")

	uncached := NewFileLoader(WithCacheEntries(0))
	text, err = uncached.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestLoad_CacheEviction(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLoader(WithCacheEntries(1))
	a := writeFile(t, dir, "a", "a")
	b := writeFile(t, dir, "b", "b")

	_, err := l.Load(context.Background(), a)
	require.NoError(t, err)
	_, err = l.Load(context.Background(), b)
	require.NoError(t, err)

	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()
	assert.Len(t, l.cache, 1)
	assert.Contains(t, l.cache, filepath.Clean(b))
}

func TestLoad_Concurrent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "d.txt", "shared")
	l := NewFileLoader()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := l.Load(context.Background(), path)
			assert.NoError(t, err)
			assert.Equal(t, "shared", text)
		}()
	}
	wg.Wait()
}
