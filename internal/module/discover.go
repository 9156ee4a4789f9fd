// SPDX-License-Identifier: MPL-2.0

package module

import (
	"strings"

	"github.com/nbuild/nbuild/internal/fsitem"
)

// skippedDirectories are never searched for modules or sources.
var skippedDirectories = map[string]bool{
	"Intermediate": true,
	"Binaries":     true,
}

// Discover returns the descriptor files found under roots, in walk order.
// A directory holding a descriptor is not descended into. Missing roots
// contribute nothing.
func Discover(cache *fsitem.Cache, roots ...string) []string {
	var found []string
	for _, root := range roots {
		dir := cache.GetDirectory(root)
		if !dir.Exists() {
			continue
		}
		found = discoverIn(dir, found)
	}
	return found
}

func discoverIn(dir *fsitem.DirectoryItem, found []string) []string {
	if f, ok := dir.TryGetFile(DescriptorFileName); ok {
		return append(found, f.Path())
	}
	for _, child := range dir.EnumerateDirectories() {
		if skipDirectory(child) {
			continue
		}
		found = discoverIn(child, found)
	}
	return found
}

func skipDirectory(dir *fsitem.DirectoryItem) bool {
	name := dir.Name()
	return strings.HasPrefix(name, ".") || skippedDirectories[name]
}
