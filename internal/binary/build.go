// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"fmt"

	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/pkg/types"
)

// Build plans the compile and link steps of b and returns the files they
// produce. A precompiled binary plans nothing. With ProjectFilesOnly or
// DisableLinking only compilation is planned and its outputs returned.
func (b *Binary) Build(bc *BuildContext) ([]*fsitem.FileItem, error) {
	if b.UsePrecompiled {
		bc.logger().Debug("using precompiled binary", "binary", b.Name)
		return nil, nil
	}

	env, err := b.SetupLinkEnvironment(bc)
	if err != nil {
		return nil, err
	}
	if bc.ProjectFilesOnly || bc.DisableLinking {
		return env.InputFiles.Items(), nil
	}

	tc := bc.Toolchain
	var produced []*fsitem.FileItem

	if b.CreateImportLibrarySeparately {
		env.IsCrossReferenced = true
		if env.Platform.HasSeparateImportLibrary() {
			libs, err := tc.Link(env.Clone(), true)
			if err != nil {
				return nil, fmt.Errorf("linking import library of %s: %w", b.Name, err)
			}
			produced = append(produced, libs...)
		}
	}

	executables, err := tc.Link(env, false)
	if err != nil {
		return nil, fmt.Errorf("linking %s: %w", b.Name, err)
	}
	produced = append(produced, executables...)

	if b.BuildAdditionalConsoleApp && b.Type == types.BinaryExecutable {
		console := consoleEnvironment(env)
		files, err := tc.Link(console, false)
		if err != nil {
			return nil, fmt.Errorf("linking console variant of %s: %w", b.Name, err)
		}
		produced = append(produced, files...)
	}

	if b.Type != types.BinaryExecutable {
		return produced, nil
	}
	for _, exe := range b.linkedOutputs(bc, executables) {
		files, err := tc.PostBuild(exe, env)
		if err != nil {
			return nil, fmt.Errorf("post-build of %s: %w", exe.Path(), err)
		}
		produced = append(produced, files...)
	}
	return produced, nil
}

func consoleEnvironment(env *buildenv.LinkEnvironment) *buildenv.LinkEnvironment {
	console := env.Clone()
	console.IsBuildingConsoleApplication = true
	console.EntryPointOverride = ConsoleEntryPoint
	console.OutputFilePaths = console.OutputFilePaths[:0]
	for _, p := range env.OutputFilePaths {
		console.OutputFilePaths = append(console.OutputFilePaths, ConsoleAppPath(p))
	}
	return console
}

// linkedOutputs keeps the files of a link result that are b's outputs,
// dropping import libraries and other side files.
func (b *Binary) linkedOutputs(bc *BuildContext, files []*fsitem.FileItem) []*fsitem.FileItem {
	if bc.Cache == nil {
		return files
	}
	wanted := make(map[*fsitem.FileItem]struct{}, len(b.OutputFilePaths))
	for _, p := range b.OutputFilePaths {
		wanted[bc.Cache.GetFile(p)] = struct{}{}
	}
	var out []*fsitem.FileItem
	for _, f := range files {
		if _, ok := wanted[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
