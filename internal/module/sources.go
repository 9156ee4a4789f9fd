// SPDX-License-Identifier: MPL-2.0

package module

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nbuild/nbuild/internal/fsitem"
)

// SourceFiles returns the files under the module directory matching its
// source patterns, in walk order. Nested module directories are excluded.
func (m *Module) SourceFiles() ([]*fsitem.FileItem, error) {
	for _, pattern := range m.SourcePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("module %s: invalid source pattern %q", m.Name, pattern)
		}
	}

	var out []*fsitem.FileItem
	skip := func(d *fsitem.DirectoryItem) bool {
		if skipDirectory(d) {
			return true
		}
		_, nested := d.TryGetFile(DescriptorFileName)
		return nested
	}
	m.Directory.VisitFiles(-1, skip, func(rel string, f *fsitem.FileItem) {
		for _, pattern := range m.SourcePatterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				out = append(out, f)
				return
			}
		}
	})
	return out, nil
}

// ResourceFiles returns the module's declared resource files that exist.
func (m *Module) ResourceFiles(cache *fsitem.Cache) []*fsitem.FileItem {
	var out []*fsitem.FileItem
	for _, p := range m.Resources {
		if f := cache.GetFile(p); f.Exists() {
			out = append(out, f)
		}
	}
	return out
}
