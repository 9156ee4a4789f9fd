// SPDX-License-Identifier: MPL-2.0

package buildenv

import (
	"slices"

	"github.com/nbuild/nbuild/internal/fsitem"
)

// FileSet is an insertion-ordered set of file nodes. Membership is node
// identity, which the PathIdentity cache makes equivalent to path equality.
type FileSet struct {
	items []*fsitem.FileItem
	index map[*fsitem.FileItem]struct{}
}

// Add appends files not already present and reports how many were added.
func (s *FileSet) Add(files ...*fsitem.FileItem) int {
	if s.index == nil {
		s.index = make(map[*fsitem.FileItem]struct{}, len(files))
	}
	added := 0
	for _, f := range files {
		if _, ok := s.index[f]; ok {
			continue
		}
		s.index[f] = struct{}{}
		s.items = append(s.items, f)
		added++
	}
	return added
}

// Contains reports whether f is in the set.
func (s *FileSet) Contains(f *fsitem.FileItem) bool {
	_, ok := s.index[f]
	return ok
}

// RemoveFunc drops every file for which drop returns true.
func (s *FileSet) RemoveFunc(drop func(*fsitem.FileItem) bool) {
	s.items = slices.DeleteFunc(s.items, func(f *fsitem.FileItem) bool {
		if drop(f) {
			delete(s.index, f)
			return true
		}
		return false
	})
}

// Any reports whether some file satisfies match.
func (s *FileSet) Any(match func(*fsitem.FileItem) bool) bool {
	return slices.ContainsFunc(s.items, match)
}

// Items returns the files in insertion order.
func (s *FileSet) Items() []*fsitem.FileItem { return slices.Clone(s.items) }

// Len returns the number of files.
func (s *FileSet) Len() int { return len(s.items) }

// Clone returns an independent copy.
func (s *FileSet) Clone() FileSet {
	var out FileSet
	out.Add(s.items...)
	return out
}
