// SPDX-License-Identifier: MPL-2.0

package fsitem

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileItem is the canonical node for one file.
type FileItem struct {
	cache *Cache
	path  string

	mu   sync.Mutex
	info *statInfo
}

func newFileItem(c *Cache, path string) *FileItem {
	return &FileItem{cache: c, path: path}
}

// Path returns the canonical absolute path.
func (f *FileItem) Path() string { return f.path }

// Name returns the file name including its extension.
func (f *FileItem) Name() string { return filepath.Base(f.path) }

// Extension returns the final extension including the dot.
func (f *FileItem) Extension() string { return filepath.Ext(f.path) }

// HasExtension reports whether the file name ends with ext, ignoring case.
func (f *FileItem) HasExtension(ext string) bool {
	return strings.HasSuffix(strings.ToLower(f.Name()), strings.ToLower(ext))
}

// String returns the path.
func (f *FileItem) String() string { return f.path }

// Directory returns the node for the containing directory.
func (f *FileItem) Directory() *DirectoryItem {
	return f.cache.GetDirectory(filepath.Dir(f.path))
}

// Exists reports whether a regular file existed when last read.
func (f *FileItem) Exists() bool { return f.stat().exists }

// LastWriteTime returns the modification time when last read.
func (f *FileItem) LastWriteTime() time.Time { return f.stat().modTime }

// Length returns the size in bytes when last read.
func (f *FileItem) Length() int64 { return f.stat().size }

// Refresh drops the cached attributes; the next query stats the file again.
func (f *FileItem) Refresh() {
	f.mu.Lock()
	f.info = nil
	f.mu.Unlock()
}

func (f *FileItem) stat() statInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.info == nil {
		f.cache.stats.Add(1)
		info, err := os.Stat(f.path)
		if err != nil || info.IsDir() {
			f.info = &statInfo{}
		} else {
			f.info = &statInfo{exists: true, modTime: info.ModTime(), size: info.Size()}
		}
	}
	return *f.info
}

func (f *FileItem) setInfo(info statInfo) {
	f.mu.Lock()
	f.info = &info
	f.mu.Unlock()
}
