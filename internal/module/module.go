// SPDX-License-Identifier: MPL-2.0

package module

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/pkg/types"
)

// DefaultSourcePatterns are used when a descriptor lists no sources.
var DefaultSourcePatterns = []string{"**/*.c", "**/*.cc", "**/*.cpp"}

// ErrAlreadyBound is the sentinel wrapped by AlreadyBoundError.
var ErrAlreadyBound = errors.New("module already bound to a binary")

type (
	// RuntimeDependencyRule declares a file staged next to the binary that
	// links the module. Path may contain $(Variable) placeholders and
	// wildcards; when Source is set the rule maps source files to targets.
	RuntimeDependencyRule struct {
		Path   string                      `json:"path"`
		Source string                      `json:"source,omitempty"`
		Type   types.RuntimeDependencyType `json:"type,omitempty"`
	}

	// Module is a compilation unit. Dependency lists are finalized before any
	// traversal starts and not modified afterwards.
	Module struct {
		Name      types.ModuleName
		Directory *fsitem.DirectoryItem
		// DescriptorPath is the nbmodule.cue the module was read from.
		DescriptorPath string

		PublicDependencies  []*Module
		PrivateDependencies []*Module
		DynamicallyLoaded   []*Module

		SourcePatterns      []string
		Definitions         []string
		PublicDefinitions   []string
		PublicIncludePaths  []string
		PublicLibraries     []string
		Resources           []string
		RuntimeDependencies []RuntimeDependencyRule

		// Precompile marks the module as one whose outputs are recorded in a
		// precompiled manifest and reused by later builds.
		Precompile bool

		// IntermediateDirectory receives the module's object files. It is
		// assigned when the module is bound to a binary.
		IntermediateDirectory string

		circular map[string]struct{}

		bindMu sync.Mutex
		binary types.BinaryName
	}

	// AlreadyBoundError is returned when a module bound to one binary is
	// bound to another.
	AlreadyBoundError struct {
		Module    types.ModuleName
		Existing  types.BinaryName
		Requested types.BinaryName
	}
)

// New creates a module rooted at dir.
func New(name types.ModuleName, dir *fsitem.DirectoryItem) *Module {
	return &Module{
		Name:           name,
		Directory:      dir,
		SourcePatterns: DefaultSourcePatterns,
	}
}

func (m *Module) String() string { return m.Name.String() }

// AddCircularDependency marks the dependency on name as an allowed part of
// a cycle.
func (m *Module) AddCircularDependency(name types.ModuleName) {
	if m.circular == nil {
		m.circular = make(map[string]struct{})
	}
	m.circular[name.Key()] = struct{}{}
}

// HasCircularDependencyOn reports whether the dependency on name is marked
// circular.
func (m *Module) HasCircularDependencyOn(name types.ModuleName) bool {
	_, ok := m.circular[name.Key()]
	return ok
}

// CircularDependencies returns the modules among m's dependencies whose edge
// is marked circular.
func (m *Module) CircularDependencies() []*Module {
	var out []*Module
	for _, dep := range m.DirectDependencies(false) {
		if m.HasCircularDependencyOn(dep.Name) {
			out = append(out, dep)
		}
	}
	return out
}

// DirectDependencies returns public, then private, then (optionally)
// dynamically loaded dependencies.
func (m *Module) DirectDependencies(includeDynamicallyLoaded bool) []*Module {
	n := len(m.PublicDependencies) + len(m.PrivateDependencies)
	if includeDynamicallyLoaded {
		n += len(m.DynamicallyLoaded)
	}
	out := make([]*Module, 0, n)
	out = append(out, m.PublicDependencies...)
	out = append(out, m.PrivateDependencies...)
	if includeDynamicallyLoaded {
		out = append(out, m.DynamicallyLoaded...)
	}
	return out
}

// Binary returns the owning binary's name, if one is bound.
func (m *Module) Binary() (types.BinaryName, bool) {
	m.bindMu.Lock()
	defer m.bindMu.Unlock()
	return m.binary, m.binary != ""
}

// BindBinary records the owning binary. Binding again to the same binary is
// a no-op; binding to a different one fails.
func (m *Module) BindBinary(name types.BinaryName) error {
	m.bindMu.Lock()
	defer m.bindMu.Unlock()
	switch m.binary {
	case "":
		m.binary = name
		return nil
	case name:
		return nil
	default:
		return &AlreadyBoundError{Module: m.Name, Existing: m.binary, Requested: name}
	}
}

// IsBoundTo reports whether m is owned by the named binary.
func (m *Module) IsBoundTo(name types.BinaryName) bool {
	bound, ok := m.Binary()
	return ok && bound == name
}

// APIMacro returns the export macro name for the module, e.g. CORE_API.
func (m *Module) APIMacro() string {
	return strings.ToUpper(m.Name.String()) + "_API"
}

// GeneratedCodeDirectory is where code generators write for this module.
func (m *Module) GeneratedCodeDirectory() string {
	if m.IntermediateDirectory == "" {
		return ""
	}
	return filepath.Join(m.IntermediateDirectory, "Generated")
}

// Error implements the error interface.
func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("module %q is assigned to binary %q and cannot also be assigned to %q", e.Module, e.Existing, e.Requested)
}

// Unwrap returns ErrAlreadyBound for errors.Is() compatibility.
func (e *AlreadyBoundError) Unwrap() error { return ErrAlreadyBound }
