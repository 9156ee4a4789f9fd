// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"fmt"

	"github.com/nbuild/nbuild/pkg/types"
)

// Set holds the binaries of one target. It is filled during target setup
// and read concurrently afterwards.
type Set struct {
	byName map[types.BinaryName]*Binary
	order  []*Binary
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{byName: make(map[types.BinaryName]*Binary)}
}

// Add inserts b.
func (s *Set) Add(b *Binary) error {
	if _, ok := s.byName[b.Name]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateBinary, b.Name)
	}
	s.byName[b.Name] = b
	s.order = append(s.order, b)
	return nil
}

// Get returns the named binary.
func (s *Set) Get(name types.BinaryName) (*Binary, bool) {
	b, ok := s.byName[name]
	return b, ok
}

// TypeOf returns the type of the named binary.
func (s *Set) TypeOf(name types.BinaryName) (types.BinaryType, bool) {
	b, ok := s.byName[name]
	if !ok {
		return "", false
	}
	return b.Type, true
}

// All returns the binaries in insertion order.
func (s *Set) All() []*Binary {
	return append([]*Binary(nil), s.order...)
}

// Len returns the number of binaries.
func (s *Set) Len() int { return len(s.order) }
