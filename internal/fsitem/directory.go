// SPDX-License-Identifier: MPL-2.0

package fsitem

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

type (
	// DirectoryItem is the canonical node for one directory.
	DirectoryItem struct {
		cache *Cache
		path  string

		infoMu sync.Mutex
		info   *statInfo

		// childMu guards population; holding it while reading the disk
		// makes population happen once per node between refreshes.
		childMu     sync.Mutex
		populated   bool
		directories []*DirectoryItem
		files       []*FileItem
		byName      map[string]any
	}

	statInfo struct {
		exists  bool
		modTime time.Time
		size    int64
	}
)

func newDirectoryItem(c *Cache, path string) *DirectoryItem {
	return &DirectoryItem{cache: c, path: path}
}

// Path returns the canonical absolute path.
func (d *DirectoryItem) Path() string { return d.path }

// Name returns the last path element.
func (d *DirectoryItem) Name() string { return filepath.Base(d.path) }

// String returns the path.
func (d *DirectoryItem) String() string { return d.path }

// Exists reports whether the directory existed when last read.
func (d *DirectoryItem) Exists() bool { return d.stat().exists }

// LastWriteTime returns the modification time when last read; the zero
// time if the directory does not exist.
func (d *DirectoryItem) LastWriteTime() time.Time { return d.stat().modTime }

// Parent returns the containing directory, or nil for a filesystem root.
func (d *DirectoryItem) Parent() *DirectoryItem {
	parent := filepath.Dir(d.path)
	if parent == d.path {
		return nil
	}
	return d.cache.GetDirectory(parent)
}

// IsUnder reports whether d is dir or one of its descendants.
func (d *DirectoryItem) IsUnder(dir *DirectoryItem) bool {
	return d.cache.IsUnder(d.path, dir.path)
}

// EnumerateDirectories returns the child directories in name order,
// reading the directory on first use.
func (d *DirectoryItem) EnumerateDirectories() []*DirectoryItem {
	d.childMu.Lock()
	defer d.childMu.Unlock()
	d.populateLocked()
	return slices.Clone(d.directories)
}

// EnumerateFiles returns the child files in name order, reading the
// directory on first use.
func (d *DirectoryItem) EnumerateFiles() []*FileItem {
	d.childMu.Lock()
	defer d.childMu.Unlock()
	d.populateLocked()
	return slices.Clone(d.files)
}

// TryGetDirectory resolves a child directory by name. "." is d itself and
// ".." its parent; any other name consults the child list.
func (d *DirectoryItem) TryGetDirectory(name string) (*DirectoryItem, bool) {
	switch name {
	case ".":
		return d, true
	case "..":
		parent := d.Parent()
		return parent, parent != nil
	}
	d.childMu.Lock()
	defer d.childMu.Unlock()
	d.populateLocked()
	child, ok := d.byName[d.cache.nameKey(name)].(*DirectoryItem)
	return child, ok
}

// TryGetFile resolves a child file by name.
func (d *DirectoryItem) TryGetFile(name string) (*FileItem, bool) {
	d.childMu.Lock()
	defer d.childMu.Unlock()
	d.populateLocked()
	child, ok := d.byName[d.cache.nameKey(name)].(*FileItem)
	return child, ok
}

// Refresh drops the cached attributes and child lists. Children that were
// listed also lose their cached attributes, so files removed since the last
// read report that they no longer exist.
func (d *DirectoryItem) Refresh() {
	d.childMu.Lock()
	directories, files := d.directories, d.files
	d.populated = false
	d.directories = nil
	d.files = nil
	d.byName = nil
	d.childMu.Unlock()

	d.infoMu.Lock()
	d.info = nil
	d.infoMu.Unlock()

	for _, dir := range directories {
		dir.resetInfo()
	}
	for _, file := range files {
		file.Refresh()
	}
}

func (d *DirectoryItem) stat() statInfo {
	d.infoMu.Lock()
	defer d.infoMu.Unlock()
	if d.info == nil {
		d.cache.stats.Add(1)
		info, err := os.Stat(d.path)
		if err != nil || !info.IsDir() {
			d.info = &statInfo{}
		} else {
			d.info = &statInfo{exists: true, modTime: info.ModTime()}
		}
	}
	return *d.info
}

func (d *DirectoryItem) setInfo(info statInfo) {
	d.infoMu.Lock()
	d.info = &info
	d.infoMu.Unlock()
}

func (d *DirectoryItem) resetInfo() {
	d.infoMu.Lock()
	d.info = nil
	d.infoMu.Unlock()
}

// populateLocked reads the directory once. The caller holds childMu.
func (d *DirectoryItem) populateLocked() {
	if d.populated {
		return
	}
	d.populated = true
	d.byName = make(map[string]any)

	d.cache.readDirs.Add(1)
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.cache.logger.Debug("directory listing failed", "path", d.path, "error", err)
		}
		d.setInfo(statInfo{})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		full := filepath.Join(d.path, name)
		info, ok := entryInfo(entry, full)
		if !ok {
			continue
		}
		if info.IsDir() {
			child := d.cache.GetDirectory(full)
			child.setInfo(statInfo{exists: true, modTime: info.ModTime()})
			d.directories = append(d.directories, child)
			d.byName[d.cache.nameKey(name)] = child
			continue
		}
		child := d.cache.GetFile(full)
		child.setInfo(statInfo{exists: true, modTime: info.ModTime(), size: info.Size()})
		d.files = append(d.files, child)
		d.byName[d.cache.nameKey(name)] = child
	}
}

// entryInfo follows symlinks so a link to a directory lists as a directory.
func entryInfo(entry fs.DirEntry, full string) (fs.FileInfo, bool) {
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(full)
		return info, err == nil
	}
	info, err := entry.Info()
	return info, err == nil
}
