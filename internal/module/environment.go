// SPDX-License-Identifier: MPL-2.0

package module

import (
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/pkg/types"
)

const (
	dllExportMacro = "NB_DLLEXPORT"
	dllImportMacro = "NB_DLLIMPORT"
)

// LinkContext describes the binary whose link environment is being
// composed.
type LinkContext struct {
	Binary     types.BinaryName
	BinaryType types.BinaryType
	// BinaryTypeOf reports the type of another binary of the target.
	BinaryTypeOf func(types.BinaryName) (types.BinaryType, bool)
	// AddDependency records that Binary links against another binary.
	AddDependency func(types.BinaryName)

	visited map[*Module]struct{}
}

// SetupPrivateLinkEnvironment adds what linking m requires: its own
// libraries and the public link contribution of each public and private
// dependency. Dependencies owned by other binaries are reported through
// ctx.AddDependency unless a static library is being built.
func (m *Module) SetupPrivateLinkEnvironment(ctx *LinkContext, env *buildenv.LinkEnvironment) {
	if ctx.visited == nil {
		ctx.visited = make(map[*Module]struct{})
	}
	ctx.visited[m] = struct{}{}
	env.AddLibraries(m.PublicLibraries...)
	for _, dep := range m.DirectDependencies(false) {
		dep.setupPublicLinkEnvironment(ctx, env)
	}
}

func (m *Module) setupPublicLinkEnvironment(ctx *LinkContext, env *buildenv.LinkEnvironment) {
	if _, seen := ctx.visited[m]; seen {
		return
	}
	ctx.visited[m] = struct{}{}

	building := ctx.BinaryType
	deps := m.PublicDependencies
	if home, ok := m.Binary(); ok && home != ctx.Binary {
		if !building.IsStaticLibrary() && ctx.AddDependency != nil {
			ctx.AddDependency(home)
		}
		// A static library does not carry its dependencies, so whoever
		// links it must link them too.
		if t, known := ctx.binaryType(home); known && t.IsStaticLibrary() && !building.IsStaticLibrary() {
			deps = m.DirectDependencies(false)
		}
	}
	for _, dep := range deps {
		dep.setupPublicLinkEnvironment(ctx, env)
	}
	env.AddLibraries(m.PublicLibraries...)
}

func (ctx *LinkContext) binaryType(name types.BinaryName) (types.BinaryType, bool) {
	if ctx.BinaryTypeOf == nil {
		return "", false
	}
	return ctx.BinaryTypeOf(name)
}

// SetupCompileEnvironment adds m's definitions and include paths and the
// public ones of every module in closure. binaryTypeOf decides each
// module's API macro: exported when it lives in building and building is
// a DLL, imported when it lives in another DLL, empty otherwise.
func (m *Module) SetupCompileEnvironment(env *buildenv.CompileEnvironment, building types.BinaryName, closure []*Module, binaryTypeOf func(types.BinaryName) (types.BinaryType, bool)) {
	env.IntermediateDirectory = m.IntermediateDirectory
	env.AddDefinitions(m.Definitions...)
	env.AddDefinitions(m.PublicDefinitions...)
	env.AddIncludePaths(m.PublicIncludePaths...)
	if gen := m.GeneratedCodeDirectory(); gen != "" {
		env.AddIncludePaths(gen)
	}
	env.AddDefinitions(m.apiDefinition(building, binaryTypeOf))

	for _, dep := range closure {
		if dep == m {
			continue
		}
		env.AddDefinitions(dep.PublicDefinitions...)
		env.AddIncludePaths(dep.PublicIncludePaths...)
		env.AddDefinitions(dep.apiDefinition(building, binaryTypeOf))
	}
}

func (m *Module) apiDefinition(building types.BinaryName, binaryTypeOf func(types.BinaryName) (types.BinaryType, bool)) string {
	value := ""
	if home, ok := m.Binary(); ok && binaryTypeOf != nil {
		if t, known := binaryTypeOf(home); known && t.IsDynamicLibrary() {
			if home == building {
				value = dllExportMacro
			} else {
				value = dllImportMacro
			}
		}
	}
	return m.APIMacro() + "=" + value
}
