// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/depgraph"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/internal/toolchain"
	"github.com/nbuild/nbuild/pkg/types"
)

const (
	// DefaultResourceName is the platform default resource. It is dropped
	// from the link inputs when a module supplies its own resource.
	DefaultResourceName = "default.rc.res"
	// ConsoleEntryPoint is the entry point of console variants.
	ConsoleEntryPoint = "WinMainCRTStartup"

	resourceExtension       = ".res"
	inlineResourceExtension = ".inl.res"
)

var (
	// ErrLibraryCollision is the sentinel wrapped by LibraryCollisionError.
	ErrLibraryCollision = errors.New("dependency libraries share a file name")
	// ErrUnknownBinary is returned when a module is bound to a binary the
	// build does not know.
	ErrUnknownBinary = errors.New("unknown binary")
)

type (
	// BuildContext carries what composing and building a binary needs.
	BuildContext struct {
		Toolchain toolchain.Toolchain
		// Binaries resolves the home binary of modules owned elsewhere.
		Binaries *Set
		Cache    *fsitem.Cache

		GlobalCompile *buildenv.CompileEnvironment
		GlobalLink    *buildenv.LinkEnvironment

		// ProjectFilesOnly and DisableLinking stop after compilation.
		ProjectFilesOnly bool
		DisableLinking   bool

		Logger *slog.Logger
	}

	// LibraryCollisionError is returned when two dependency binaries
	// contribute libraries with the same file name from different paths.
	LibraryCollisionError struct {
		Binary       types.BinaryName
		Name         string
		First        string
		FirstBinary  types.BinaryName
		Second       string
		SecondBinary types.BinaryName
	}
)

func (bc *BuildContext) logger() *slog.Logger {
	if bc.Logger != nil {
		return bc.Logger
	}
	return slog.Default()
}

func (bc *BuildContext) typeOf(name types.BinaryName) (types.BinaryType, bool) {
	if bc.Binaries == nil {
		return "", false
	}
	return bc.Binaries.TypeOf(name)
}

// CreateBinaryCompileEnvironment derives the compile environment shared by
// the modules of b from global.
func (b *Binary) CreateBinaryCompileEnvironment(global *buildenv.CompileEnvironment) *buildenv.CompileEnvironment {
	env := global.Clone()
	env.IsBuildingDLL = b.Type.IsDynamicLibrary()
	env.IsBuildingLibrary = b.Type.IsStaticLibrary()

	paths := b.OriginalOutputFilePaths
	if len(paths) == 0 {
		paths = b.OutputFilePaths
	}
	if len(paths) > 0 {
		env.AddDefinitions(fmt.Sprintf("ORIGINAL_FILE_NAME=%q", filepath.Base(paths[0])))
	}
	return env
}

func (b *Binary) moduleCompileEnvironment(bc *BuildContext, m *module.Module, binaryEnv *buildenv.CompileEnvironment) *buildenv.CompileEnvironment {
	env := binaryEnv.Clone()
	closure := depgraph.AllDependencies(m, nil, depgraph.Options{ForceIncludeCircular: true})
	m.SetupCompileEnvironment(env, b.Name, closure, bc.typeOf)
	if env.IntermediateDirectory == "" {
		env.IntermediateDirectory = filepath.Join(b.IntermediateDirectory, m.Name.String())
	}
	return env
}

// SetupLinkEnvironment compiles the modules b owns and composes the
// environment its link step consumes. The result is not cached.
func (b *Binary) SetupLinkEnvironment(bc *BuildContext) (*buildenv.LinkEnvironment, error) {
	if len(b.OutputFilePaths) == 0 {
		return nil, &OutputCountError{Binary: b.Name, Count: 0}
	}
	tc := bc.Toolchain
	platform := tc.Platform()

	env := &buildenv.LinkEnvironment{}
	if bc.GlobalLink != nil {
		env = bc.GlobalLink.Clone()
	}
	env.Platform = platform
	env.Binary = b.Name

	global := bc.GlobalCompile
	if global == nil {
		global = &buildenv.CompileEnvironment{}
	}
	binaryCompile := b.CreateBinaryCompileEnvironment(global)
	binaryCompile.Platform = platform

	var dependencies []types.BinaryName
	addDependency := func(name types.BinaryName) {
		if name != b.Name && !slices.Contains(dependencies, name) {
			dependencies = append(dependencies, name)
		}
	}

	for _, m := range b.modules {
		home, bound := m.Binary()
		if bound && home != b.Name {
			addDependency(home)
			continue
		}
		files, err := tc.Compile(m, b.moduleCompileEnvironment(bc, m, binaryCompile))
		if err != nil {
			return nil, fmt.Errorf("compiling module %s: %w", m.Name, err)
		}
		if added := env.InputFiles.Add(files...); added < len(files) {
			bc.logger().Debug("suppressed duplicate link inputs", "binary", b.Name, "module", m.Name, "count", len(files)-added)
		}
	}

	lc := &module.LinkContext{
		Binary:        b.Name,
		BinaryType:    b.Type,
		BinaryTypeOf:  bc.typeOf,
		AddDependency: addDependency,
	}
	for _, m := range b.modules {
		m.SetupPrivateLinkEnvironment(lc, env)
	}

	if err := b.addDependencyLibraries(bc, env, dependencies); err != nil {
		return nil, err
	}

	applyResourceRules(env, platform, bc.GlobalLink)

	env.OutputFilePaths = slices.Clone(b.OutputFilePaths)
	env.HasExports = b.AllowExports
	env.IntermediateDirectory = b.IntermediateDirectory
	env.OutputDirectory = filepath.Dir(b.OutputFilePaths[0])
	env.IsBuildingDLL = b.Type.IsDynamicLibrary()
	env.IsBuildingLibrary = b.Type.IsStaticLibrary()
	return env, nil
}

func (b *Binary) addDependencyLibraries(bc *BuildContext, env *buildenv.LinkEnvironment, dependencies []types.BinaryName) error {
	type origin struct {
		path   string
		binary types.BinaryName
	}
	platform := env.Platform
	seen := make(map[string]origin)
	var errs []error
	for _, name := range dependencies {
		var dep *Binary
		if bc.Binaries != nil {
			dep, _ = bc.Binaries.Get(name)
		}
		if dep == nil {
			errs = append(errs, fmt.Errorf("%w %q referenced by %s", ErrUnknownBinary, name, b.Name))
			continue
		}
		libs := dep.DependentLinkLibraries(platform)
		for _, lib := range libs {
			key := strings.ToLower(filepath.Base(lib))
			if prev, ok := seen[key]; ok && filepath.Clean(prev.path) != filepath.Clean(lib) {
				errs = append(errs, &LibraryCollisionError{
					Binary: b.Name, Name: filepath.Base(lib),
					First: prev.path, FirstBinary: prev.binary,
					Second: lib, SecondBinary: name,
				})
				continue
			}
			seen[key] = origin{path: lib, binary: name}
		}
		env.AddDependencyLibraries(libs...)
	}
	return errors.Join(errs...)
}

func applyResourceRules(env *buildenv.LinkEnvironment, platform buildenv.Platform, global *buildenv.LinkEnvironment) {
	custom := env.InputFiles.Any(func(f *fsitem.FileItem) bool {
		return isResource(f) && !isInlineResource(f) && !isDefaultResource(f)
	})
	if custom {
		env.InputFiles.RemoveFunc(isDefaultResource)
	}
	if global == nil {
		return
	}
	if platform.UsesResourceFiles && !env.InputFiles.Any(isResource) {
		env.InputFiles.Add(global.DefaultResourceFiles...)
	}
	env.InputFiles.Add(global.CommonResourceFiles...)
}

func isResource(f *fsitem.FileItem) bool {
	return strings.EqualFold(f.Extension(), resourceExtension)
}

func isInlineResource(f *fsitem.FileItem) bool {
	return strings.HasSuffix(strings.ToLower(f.Name()), inlineResourceExtension)
}

func isDefaultResource(f *fsitem.FileItem) bool {
	return strings.EqualFold(f.Name(), DefaultResourceName)
}

// Error implements the error interface.
func (e *LibraryCollisionError) Error() string {
	return fmt.Sprintf("binary %s links two libraries named %s: %s (from %s) and %s (from %s)",
		e.Binary, e.Name, e.First, e.FirstBinary, e.Second, e.SecondBinary)
}

// Unwrap returns ErrLibraryCollision for errors.Is() compatibility.
func (e *LibraryCollisionError) Unwrap() error { return ErrLibraryCollision }
