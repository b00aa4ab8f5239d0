// Package content resolves a job's raw content reference to text.
//
// Two reference forms are understood:
//
//	inline:<text>            the text itself, used by paste submissions and tests
//	file:///abs/path, path   a UTF-8 file on the local filesystem
//
// File reads are cached by reference and concurrent loads of the same
// reference share one read.
package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// InlinePrefix marks a reference whose remainder is the content itself.
const InlinePrefix = "inline:"

const filePrefix = "file://"

var (
	// ErrEmptyContent is returned when a reference resolves to blank text.
	ErrEmptyContent = errors.New("content is empty")

	// ErrNotText is returned when a file is not valid UTF-8.
	ErrNotText = errors.New("content is not valid UTF-8 text")

	// ErrTooLarge is returned when a file exceeds the configured size limit.
	ErrTooLarge = errors.New("content exceeds size limit")
)

// Loader fetches raw text for a content reference.
type Loader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// Inline returns an inline reference carrying text.
func Inline(text string) string {
	return InlinePrefix + text
}

// FileLoader implements Loader for inline and filesystem references.
type FileLoader struct {
	root       string
	maxBytes   int64
	maxEntries int

	cache   map[string]string
	order   []string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

var _ Loader = (*FileLoader)(nil)

// Option configures a FileLoader.
type Option func(*FileLoader)

// WithRoot resolves relative paths against dir.
func WithRoot(dir string) Option {
	return func(l *FileLoader) {
		l.root = dir
	}
}

// WithMaxBytes limits the size of files that may be loaded.
func WithMaxBytes(n int64) Option {
	return func(l *FileLoader) {
		l.maxBytes = n
	}
}

// WithCacheEntries bounds the number of cached files. Zero disables caching.
func WithCacheEntries(n int) Option {
	return func(l *FileLoader) {
		l.maxEntries = n
	}
}

// NewFileLoader creates a loader with a 64-entry cache and a 16 MiB file limit.
func NewFileLoader(opts ...Option) *FileLoader {
	l := &FileLoader{
		maxBytes:   16 << 20,
		maxEntries: 64,
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves ref to text. Blank results are ErrEmptyContent.
func (l *FileLoader) Load(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if text, ok := strings.CutPrefix(ref, InlinePrefix); ok {
		return checkText(text)
	}

	path := l.resolve(ref)

	l.cacheMu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(path, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[path]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		text, err := l.readFile(path)
		if err != nil {
			return "", err
		}
		l.remember(path, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (l *FileLoader) resolve(ref string) string {
	path := strings.TrimPrefix(ref, filePrefix)
	if l.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	return filepath.Clean(path)
}

func (l *FileLoader) readFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return checkText(string(data))
}

// remember caches text, evicting the oldest entry when full.
func (l *FileLoader) remember(path, text string) {
	if l.maxEntries <= 0 {
		return
	}
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	if _, ok := l.cache[path]; ok {
		return
	}
	if len(l.order) >= l.maxEntries {
		delete(l.cache, l.order[0])
		l.order = l.order[1:]
	}
	l.cache[path] = text
	l.order = append(l.order, path)
}

func checkText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
