// SPDX-License-Identifier: MPL-2.0

package buildenv

import (
	"slices"

	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/pkg/types"
)

type (
	// CompileEnvironment carries the settings one compile action sees.
	CompileEnvironment struct {
		Platform          Platform
		Definitions       []string
		IncludePaths      []string
		IsBuildingDLL     bool
		IsBuildingLibrary bool
		// IntermediateDirectory receives object files.
		IntermediateDirectory string
	}

	// LinkEnvironment is the aggregated input of one link step.
	LinkEnvironment struct {
		Platform Platform
		// Binary names the binary being linked.
		Binary types.BinaryName
		// InputFiles are object files and compiled resources, in
		// first-seen order without duplicates.
		InputFiles FileSet
		// AdditionalLibraries are library paths contributed by modules and
		// by dependency binaries, in first-seen order without duplicates.
		AdditionalLibraries []string
		// DependencyLibraries is the subset of AdditionalLibraries produced
		// by other binaries of the build.
		DependencyLibraries []string
		// DefaultResourceFiles are linked only when no custom resource is
		// present. CommonResourceFiles are always linked.
		DefaultResourceFiles []*fsitem.FileItem
		CommonResourceFiles  []*fsitem.FileItem

		OutputFilePaths       []string
		OutputDirectory       string
		IntermediateDirectory string

		HasExports                   bool
		IsBuildingDLL                bool
		IsBuildingLibrary            bool
		IsBuildingConsoleApplication bool
		// IsCrossReferenced marks a binary whose import library is produced
		// by a separate step, so symbols from its dependents may be missing.
		IsCrossReferenced  bool
		EntryPointOverride string
	}
)

// Clone returns an independent copy.
func (e *CompileEnvironment) Clone() *CompileEnvironment {
	out := *e
	out.Definitions = slices.Clone(e.Definitions)
	out.IncludePaths = slices.Clone(e.IncludePaths)
	return &out
}

// AddDefinitions appends definitions not already present.
func (e *CompileEnvironment) AddDefinitions(defs ...string) {
	for _, d := range defs {
		if !slices.Contains(e.Definitions, d) {
			e.Definitions = append(e.Definitions, d)
		}
	}
}

// AddIncludePaths appends include paths not already present.
func (e *CompileEnvironment) AddIncludePaths(paths ...string) {
	for _, p := range paths {
		if !slices.Contains(e.IncludePaths, p) {
			e.IncludePaths = append(e.IncludePaths, p)
		}
	}
}

// Clone returns an independent copy.
func (e *LinkEnvironment) Clone() *LinkEnvironment {
	out := *e
	out.InputFiles = e.InputFiles.Clone()
	out.AdditionalLibraries = slices.Clone(e.AdditionalLibraries)
	out.DependencyLibraries = slices.Clone(e.DependencyLibraries)
	out.DefaultResourceFiles = slices.Clone(e.DefaultResourceFiles)
	out.CommonResourceFiles = slices.Clone(e.CommonResourceFiles)
	out.OutputFilePaths = slices.Clone(e.OutputFilePaths)
	return &out
}

// AddLibraries appends library paths not already present.
func (e *LinkEnvironment) AddLibraries(libs ...string) {
	for _, l := range libs {
		if !slices.Contains(e.AdditionalLibraries, l) {
			e.AdditionalLibraries = append(e.AdditionalLibraries, l)
		}
	}
}

// AddDependencyLibraries appends libraries produced by another binary.
func (e *LinkEnvironment) AddDependencyLibraries(libs ...string) {
	e.AddLibraries(libs...)
	for _, l := range libs {
		if !slices.Contains(e.DependencyLibraries, l) {
			e.DependencyLibraries = append(e.DependencyLibraries, l)
		}
	}
}
