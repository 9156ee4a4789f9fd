// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/depgraph"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/pkg/types"
)

// ConsoleSuffix is inserted before the extension of console variants.
const ConsoleSuffix = "-Cmd"

var (
	// ErrOutputCount is the sentinel wrapped by OutputCountError.
	ErrOutputCount = errors.New("binary does not have exactly one output path")
	// ErrDuplicateBinary is returned when a Set already holds a name.
	ErrDuplicateBinary = errors.New("duplicate binary")
)

type (
	// Config describes a binary before its modules are attached.
	Config struct {
		Name types.BinaryName
		Type types.BinaryType
		// OutputFilePaths has one entry, or one per architecture for fat
		// binaries.
		OutputFilePaths []string
		// OriginalOutputFilePaths are the names without a hot reload
		// suffix. Empty when outputs are not renamed.
		OriginalOutputFilePaths []string
		IntermediateDirectory   string

		AllowExports                  bool
		CreateImportLibrarySeparately bool
		BuildAdditionalConsoleApp     bool
		// UsePrecompiled treats the binary as already built.
		UsePrecompiled bool
	}

	// Binary is one linked output and the modules it builds.
	Binary struct {
		Config

		modules       []*module.Module
		dependentLibs once[[]string]
	}

	// SingleOutputPath is the output of a binary known to have exactly one.
	SingleOutputPath string

	// OutputCountError is returned when exactly one output path is
	// required.
	OutputCountError struct {
		Binary types.BinaryName
		Count  int
	}
)

// New creates a binary owning modules. The first module is the primary
// one.
func New(cfg Config, modules ...*module.Module) (*Binary, error) {
	if err := cfg.Name.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Type.Validate(); err != nil {
		return nil, err
	}
	return &Binary{Config: cfg, modules: append([]*module.Module(nil), modules...)}, nil
}

func (b *Binary) String() string { return b.Name.String() }

// Modules returns the owned modules in declaration order.
func (b *Binary) Modules() []*module.Module {
	return append([]*module.Module(nil), b.modules...)
}

// PrimaryModule returns the first owned module, or nil.
func (b *Binary) PrimaryModule() *module.Module {
	if len(b.modules) == 0 {
		return nil
	}
	return b.modules[0]
}

// AddModule appends m unless it is already owned.
func (b *Binary) AddModule(m *module.Module) {
	for _, existing := range b.modules {
		if existing == m {
			return
		}
	}
	b.modules = append(b.modules, m)
}

// FindModule looks an owned module up by name, ignoring case.
func (b *Binary) FindModule(name types.ModuleName) (*module.Module, bool) {
	for _, m := range b.modules {
		if m.Name.Equal(name) {
			return m, true
		}
	}
	return nil, false
}

// FindGameModules returns the owned modules outside engineDir. With a nil
// engineDir every module is a game module.
func (b *Binary) FindGameModules(engineDir *fsitem.DirectoryItem) []*module.Module {
	var out []*module.Module
	for _, m := range b.modules {
		if engineDir == nil || !m.Directory.IsUnder(engineDir) {
			out = append(out, m)
		}
	}
	return out
}

// SingleOutput returns the only output path.
func (b *Binary) SingleOutput() (SingleOutputPath, error) {
	return single(b.Name, b.OutputFilePaths)
}

// SingleOriginalOutput returns the only original output path, falling back
// to SingleOutput when outputs were not renamed.
func (b *Binary) SingleOriginalOutput() (SingleOutputPath, error) {
	if b.OriginalOutputFilePaths == nil {
		return b.SingleOutput()
	}
	return single(b.Name, b.OriginalOutputFilePaths)
}

func single(name types.BinaryName, paths []string) (SingleOutputPath, error) {
	if len(paths) != 1 {
		return "", &OutputCountError{Binary: name, Count: len(paths)}
	}
	return SingleOutputPath(paths[0]), nil
}

// ReferencedBinaries returns the other binaries owning modules in b's
// closure, in first-seen order. It is recomputed on every call.
func (b *Binary) ReferencedBinaries(opts depgraph.Options) []types.BinaryName {
	var out []types.BinaryName
	seen := map[types.BinaryName]bool{b.Name: true}
	for _, m := range depgraph.BinaryModules(b.modules, opts) {
		home, ok := m.Binary()
		if !ok || seen[home] {
			continue
		}
		seen[home] = true
		out = append(out, home)
	}
	return out
}

// DependentLinkLibraries returns the libraries another binary links to use
// b. It is computed once per binary. A static library, or any binary on a
// platform that links shared objects directly, is used through its output
// file; otherwise through the import library in b's intermediate
// directory.
func (b *Binary) DependentLinkLibraries(p buildenv.Platform) []string {
	return b.dependentLibs.get(func() []string {
		libs := make([]string, 0, len(b.OutputFilePaths))
		for _, out := range b.OutputFilePaths {
			if b.Type.IsStaticLibrary() || p.LinksSharedObjectsDirectly {
				libs = append(libs, out)
			} else {
				libs = append(libs, p.ImportLibraryPath(b.IntermediateDirectory, out))
			}
		}
		return libs
	})
}

// ConsoleAppPath returns the console variant of path: <dir>/<stem>-Cmd<ext>.
func ConsoleAppPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+ConsoleSuffix+ext)
}

// Error implements the error interface.
func (e *OutputCountError) Error() string {
	return fmt.Sprintf("binary %s must have exactly one output path to use this operation, but has %d", e.Binary, e.Count)
}

// Unwrap returns ErrOutputCount for errors.Is() compatibility.
func (e *OutputCountError) Unwrap() error { return ErrOutputCount }
