// SPDX-License-Identifier: MPL-2.0

package module

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nbuild/nbuild/internal/dag"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/pkg/cueutil"
	"github.com/nbuild/nbuild/pkg/types"
)

var (
	// ErrDuplicateModule is the sentinel wrapped by DuplicateModuleError.
	ErrDuplicateModule = errors.New("duplicate module")
	// ErrUnknownDependency is the sentinel wrapped by UnknownDependencyError.
	ErrUnknownDependency = errors.New("unknown module dependency")
)

type (
	// Table owns every module of a target, keyed case-insensitively.
	Table struct {
		byKey map[string]*Module
		order []*Module
	}

	// Entry pairs a descriptor with the file it came from.
	Entry struct {
		Path       string
		Descriptor *Descriptor
	}

	// DuplicateModuleError is returned when two descriptors declare the
	// same name.
	DuplicateModuleError struct {
		Name          types.ModuleName
		First, Second string
	}

	// UnknownDependencyError is returned when a descriptor names a module
	// that is not in the table.
	UnknownDependencyError struct {
		Module     types.ModuleName
		Dependency string
		Path       string
	}
)

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{byKey: make(map[string]*Module)}
}

// Add inserts m. A module whose name is already present is rejected.
func (t *Table) Add(m *Module) error {
	key := m.Name.Key()
	if existing, ok := t.byKey[key]; ok {
		return &DuplicateModuleError{Name: m.Name, First: existing.DescriptorPath, Second: m.DescriptorPath}
	}
	t.byKey[key] = m
	t.order = append(t.order, m)
	return nil
}

// Find looks a module up by name, ignoring case.
func (t *Table) Find(name types.ModuleName) (*Module, bool) {
	m, ok := t.byKey[name.Key()]
	return m, ok
}

// Modules returns all modules in insertion order.
func (t *Table) Modules() []*Module {
	return append([]*Module(nil), t.order...)
}

// Len returns the number of modules.
func (t *Table) Len() int { return len(t.order) }

// BuildTable creates one module per entry, resolves dependency names and
// rejects cycles that are not declared circular. Relative paths in a
// descriptor are resolved against the module directory.
func BuildTable(cache *fsitem.Cache, entries []Entry) (*Table, error) {
	t := NewTable()
	for _, e := range entries {
		m, err := fromDescriptor(cache, e)
		if err != nil {
			return nil, err
		}
		if err := t.Add(m); err != nil {
			return nil, err
		}
	}

	var errs []error
	for i, e := range entries {
		if err := t.link(t.order[i], e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := t.CheckCycles(); err != nil {
		return nil, err
	}
	return t, nil
}

// CheckCycles returns a *dag.CycleError (wrapped) when public or private
// dependencies form a cycle that no module marked circular. Dynamically
// loaded modules never participate.
func (t *Table) CheckCycles() error {
	g := dag.New()
	for _, m := range t.order {
		g.AddNode(m.Name.String())
		for _, dep := range m.DirectDependencies(false) {
			if m.HasCircularDependencyOn(dep.Name) {
				continue
			}
			g.AddEdge(m.Name.String(), dep.Name.String())
		}
	}
	if _, err := g.TopologicalSort(); err != nil {
		return fmt.Errorf("modules depend on each other without a circular declaration: %w", err)
	}
	return nil
}

func fromDescriptor(cache *fsitem.Cache, e Entry) (*Module, error) {
	d := e.Descriptor
	name := types.ModuleName(d.Name)
	if err := name.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", e.Path, err)
	}
	dir := cache.GetDirectory(filepath.Dir(e.Path))
	m := New(name, dir)
	m.DescriptorPath = e.Path
	if len(d.Sources) > 0 {
		m.SourcePatterns = d.Sources
	}
	m.Definitions = d.Definitions
	m.PublicDefinitions = d.PublicDefinitions
	m.PublicIncludePaths = resolvePaths(dir.Path(), d.PublicIncludePaths)
	if len(m.PublicIncludePaths) == 0 {
		m.PublicIncludePaths = []string{dir.Path()}
	}
	m.PublicLibraries = resolveLibraries(dir.Path(), d.PublicLibraries)
	m.Resources = resolvePaths(dir.Path(), d.Resources)
	m.Precompile = d.Precompile
	for i, rule := range d.RuntimeDependencies {
		if err := rule.Type.Validate(); err != nil {
			return nil, fmt.Errorf("%s: runtime_dependencies[%d]: %w", e.Path, i, err)
		}
		m.RuntimeDependencies = append(m.RuntimeDependencies, rule)
	}
	return m, nil
}

func (t *Table) link(m *Module, e Entry) error {
	var errs []error
	resolve := func(names []string) []*Module {
		out := make([]*Module, 0, len(names))
		for _, name := range names {
			dep, ok := t.Find(types.ModuleName(name))
			if !ok {
				errs = append(errs, &UnknownDependencyError{Module: m.Name, Dependency: name, Path: e.Path})
				continue
			}
			out = append(out, dep)
		}
		return out
	}
	m.PublicDependencies = resolve(e.Descriptor.PublicDependencies)
	m.PrivateDependencies = resolve(e.Descriptor.PrivateDependencies)
	m.DynamicallyLoaded = resolve(e.Descriptor.DynamicallyLoaded)

	for i, name := range e.Descriptor.CircularDependencies {
		if !declaresDependency(m, types.ModuleName(name)) {
			errs = append(errs, &cueutil.ValidationError{
				FilePath:   e.Path,
				CUEPath:    fmt.Sprintf("circular_dependencies[%d]", i),
				Message:    fmt.Sprintf("%q is not a public or private dependency of %s", name, m.Name),
				Suggestion: "add it to public_dependencies or private_dependencies",
			})
			continue
		}
		m.AddCircularDependency(types.ModuleName(name))
	}
	return errors.Join(errs...)
}

func declaresDependency(m *Module, name types.ModuleName) bool {
	for _, dep := range m.DirectDependencies(false) {
		if dep.Name.Equal(name) {
			return true
		}
	}
	return false
}

func resolvePaths(base string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = filepath.Clean(p)
		} else {
			out[i] = filepath.Join(base, filepath.FromSlash(p))
		}
	}
	return out
}

// Error implements the error interface.
func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %q is declared twice: %s and %s", e.Name, e.First, e.Second)
}

// Unwrap returns ErrDuplicateModule for errors.Is() compatibility.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

// Error implements the error interface.
func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("%s: module %s depends on unknown module %q", e.Path, e.Module, e.Dependency)
}

// Unwrap returns ErrUnknownDependency for errors.Is() compatibility.
func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// resolveLibraries treats linker flags such as -lz as names, not paths.
func resolveLibraries(base string, libs []string) []string {
	out := make([]string, 0, len(libs))
	for _, l := range libs {
		if strings.HasPrefix(l, "-") {
			out = append(out, l)
			continue
		}
		out = append(out, resolvePaths(base, []string{l})...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
