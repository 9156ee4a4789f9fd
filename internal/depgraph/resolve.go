// SPDX-License-Identifier: MPL-2.0

package depgraph

import "github.com/nbuild/nbuild/internal/module"

type (
	// Options control which edges a walk follows.
	Options struct {
		// IncludeDynamicallyLoaded follows dynamically loaded dependencies
		// after public and private ones.
		IncludeDynamicallyLoaded bool
		// ForceIncludeCircular follows edges marked circular.
		ForceIncludeCircular bool
		// DirectOnly stops after one hop.
		DirectOnly bool
	}

	// Visited records modules already accounted for. Passing the same set
	// to several walks keeps each module in at most one result.
	Visited map[*module.Module]struct{}
)

// Add marks modules as visited.
func (v Visited) Add(modules ...*module.Module) {
	for _, m := range modules {
		v[m] = struct{}{}
	}
}

// Has reports whether m was visited.
func (v Visited) Has(m *module.Module) bool {
	_, ok := v[m]
	return ok
}

// AllDependencies returns the modules reachable from root in post-order:
// each module follows every module it depends on, unless a cycle makes
// that impossible. root itself is marked visited and never returned.
// A nil visited set starts a fresh walk.
func AllDependencies(root *module.Module, visited Visited, opts Options) []*module.Module {
	if visited == nil {
		visited = make(Visited)
	}
	visited.Add(root)
	return appendDependencies(nil, root, visited, opts)
}

// BinaryModules returns the closure of a binary's own modules, each own
// module placed after its dependencies.
func BinaryModules(modules []*module.Module, opts Options) []*module.Module {
	var out []*module.Module
	visited := make(Visited)
	for _, m := range modules {
		if visited.Has(m) {
			continue
		}
		visited.Add(m)
		out = appendDependencies(out, m, visited, opts)
		out = append(out, m)
	}
	return out
}

func appendDependencies(out []*module.Module, m *module.Module, visited Visited, opts Options) []*module.Module {
	for _, dep := range m.DirectDependencies(opts.IncludeDynamicallyLoaded) {
		if visited.Has(dep) {
			continue
		}
		if m.HasCircularDependencyOn(dep.Name) && !opts.ForceIncludeCircular {
			continue
		}
		visited.Add(dep)
		if !opts.DirectOnly {
			out = appendDependencies(out, dep, visited, opts)
		}
		out = append(out, dep)
	}
	return out
}
