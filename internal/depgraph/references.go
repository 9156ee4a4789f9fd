// SPDX-License-Identifier: MPL-2.0

package depgraph

import (
	"slices"
	"strings"

	"github.com/nbuild/nbuild/internal/module"
)

// ReferenceForest maps every module reachable from a set of roots to the
// module that first referenced it. Roots have no parent.
type ReferenceForest struct {
	parent map[*module.Module]*module.Module
	order  []*module.Module
}

// FindModuleReferences walks outward from roots one hop at a time along
// public and private edges, recording the first referrer of each module.
// Circular edges and dynamically loaded modules are not followed.
func FindModuleReferences(roots []*module.Module) *ReferenceForest {
	f := &ReferenceForest{parent: make(map[*module.Module]*module.Module)}
	for _, m := range roots {
		if _, ok := f.parent[m]; ok {
			continue
		}
		f.parent[m] = nil
		f.order = append(f.order, m)
	}

	visited := make(Visited)
	opts := Options{DirectOnly: true}
	for i := 0; i < len(f.order); i++ {
		source := f.order[i]
		for _, dep := range appendDependencies(nil, source, visited, opts) {
			if _, ok := f.parent[dep]; ok {
				continue
			}
			f.parent[dep] = source
			f.order = append(f.order, dep)
		}
	}
	return f
}

// Modules returns every module in the forest in discovery order.
func (f *ReferenceForest) Modules() []*module.Module {
	return append([]*module.Module(nil), f.order...)
}

// Contains reports whether m is reachable from the roots.
func (f *ReferenceForest) Contains(m *module.Module) bool {
	_, ok := f.parent[m]
	return ok
}

// Parent returns the module that first referenced m. ok is false for
// roots and for modules outside the forest.
func (f *ReferenceForest) Parent(m *module.Module) (parent *module.Module, ok bool) {
	p := f.parent[m]
	return p, p != nil
}

// Chain returns the reference path from a root to m, root first. It is
// empty when m is not in the forest.
func (f *ReferenceForest) Chain(m *module.Module) []*module.Module {
	if !f.Contains(m) {
		return nil
	}
	var chain []*module.Module
	for cur := m; cur != nil; cur = f.parent[cur] {
		chain = append(chain, cur)
	}
	slices.Reverse(chain)
	return chain
}

// FormatChain renders a chain as "A -> B -> C".
func FormatChain(chain []*module.Module) string {
	names := make([]string, len(chain))
	for i, m := range chain {
		names[i] = m.Name.String()
	}
	return strings.Join(names, " -> ")
}
