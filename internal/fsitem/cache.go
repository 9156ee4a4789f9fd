// SPDX-License-Identifier: MPL-2.0

package fsitem

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nbuild/nbuild/pkg/platform"
)

type (
	// Cache is the path-to-node table. The zero value is not usable; create
	// one with NewCache and pass it to every component that resolves paths.
	Cache struct {
		directories sync.Map // key -> *DirectoryItem
		files       sync.Map // key -> *FileItem
		foldCase    bool
		logger      *slog.Logger

		stats    atomic.Int64
		readDirs atomic.Int64
	}

	// Option configures a Cache.
	Option func(*Cache)

	// Stats counts the disk operations a Cache has performed.
	Stats struct {
		// Stats is the number of single-path stat calls.
		Stats int64
		// DirectoryReads is the number of directory listings.
		DirectoryReads int64
	}
)

// WithCaseFolding overrides whether paths differing only in case map to the
// same node. The default follows the host: folded on Windows and macOS.
func WithCaseFolding(fold bool) Option {
	return func(c *Cache) {
		c.foldCase = fold
	}
}

// WithLogger sets the logger used for swallowed I/O errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		foldCase: platform.FoldsCase(runtime.GOOS),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDirectory returns the node for the directory at path, creating it if
// needed. Relative paths are resolved against the working directory.
func (c *Cache) GetDirectory(path string) *DirectoryItem {
	canonical := canonicalPath(path)
	key := c.key(canonical)
	if existing, ok := c.directories.Load(key); ok {
		return existing.(*DirectoryItem)
	}
	// A racing caller may store first; its node wins and ours is dropped.
	actual, _ := c.directories.LoadOrStore(key, newDirectoryItem(c, canonical))
	return actual.(*DirectoryItem)
}

// GetFile returns the node for the file at path, creating it if needed.
func (c *Cache) GetFile(path string) *FileItem {
	canonical := canonicalPath(path)
	key := c.key(canonical)
	if existing, ok := c.files.Load(key); ok {
		return existing.(*FileItem)
	}
	actual, _ := c.files.LoadOrStore(key, newFileItem(c, canonical))
	return actual.(*FileItem)
}

// LookupDirectory returns the node for path only if one was already created.
func (c *Cache) LookupDirectory(path string) (*DirectoryItem, bool) {
	existing, ok := c.directories.Load(c.key(canonicalPath(path)))
	if !ok {
		return nil, false
	}
	return existing.(*DirectoryItem), true
}

// LookupFile returns the node for path only if one was already created.
func (c *Cache) LookupFile(path string) (*FileItem, bool) {
	existing, ok := c.files.Load(c.key(canonicalPath(path)))
	if !ok {
		return nil, false
	}
	return existing.(*FileItem), true
}

// Invalidate refreshes whatever nodes exist for path and for its parent
// directory. Paths never looked up are left alone, so invalidation never
// creates nodes.
func (c *Cache) Invalidate(path string) {
	if dir, ok := c.LookupDirectory(path); ok {
		dir.Refresh()
	}
	if file, ok := c.LookupFile(path); ok {
		file.Refresh()
	}
	if parent, ok := c.LookupDirectory(filepath.Dir(canonicalPath(path))); ok {
		parent.Refresh()
	}
}

// IsUnder reports whether path is dir or lies below it, using the cache's
// case rules.
func (c *Cache) IsUnder(path, dir string) bool {
	p := c.key(canonicalPath(path))
	d := c.key(canonicalPath(dir))
	if p == d {
		return true
	}
	if !strings.HasSuffix(d, string(filepath.Separator)) {
		d += string(filepath.Separator)
	}
	return strings.HasPrefix(p, d)
}

// Stats returns the disk operation counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Stats:          c.stats.Load(),
		DirectoryReads: c.readDirs.Load(),
	}
}

func (c *Cache) key(canonical string) string {
	if c.foldCase {
		return strings.ToLower(canonical)
	}
	return canonical
}

func (c *Cache) nameKey(name string) string {
	if c.foldCase {
		return strings.ToLower(name)
	}
	return name
}

// canonicalPath makes path absolute and clean. If the working directory
// cannot be read the cleaned input is used as is.
func canonicalPath(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	return filepath.Clean(path)
}
