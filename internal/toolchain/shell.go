// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
)

// ErrMissingCommand is returned when a step has no command template.
var ErrMissingCommand = errors.New("no command configured")

// Environment variables visible to command templates.
const (
	EnvModule       = "NB_MODULE"
	EnvSource       = "NB_SOURCE"
	EnvOutput       = "NB_OUTPUT"
	EnvOutputs      = "NB_OUTPUTS"
	EnvDefines      = "NB_DEFINES"
	EnvIncludes     = "NB_INCLUDES"
	EnvLibraries    = "NB_LIBRARIES"
	EnvImportLib    = "NB_IMPORT_LIB"
	EnvConsole      = "NB_CONSOLE"
	EnvEntryPoint   = "NB_ENTRY_POINT"
	EnvExports      = "NB_EXPORTS"
	EnvExecutable   = "NB_EXECUTABLE"
	postBuildSuffix = ".postbuild.stamp"
)

type (
	// Commands are the shell templates for each step. PostBuild and
	// ImportLibrary may be empty.
	Commands struct {
		Compile        string
		LinkExecutable string
		LinkDynamic    string
		LinkStatic     string
		ImportLibrary  string
		PostBuild      string
	}

	// ShellOptions configure NewShell.
	ShellOptions struct {
		Platform buildenv.Platform
		Commands Commands
		// DebugExtensions override the platform defaults when set.
		DebugExtensions []string
		Cache           *fsitem.Cache
		Graph           *action.Graph
	}

	// ShellToolchain plans actions from command templates.
	ShellToolchain struct {
		platform        buildenv.Platform
		commands        Commands
		debugExtensions []string
		cache           *fsitem.Cache
		graph           *action.Graph
	}
)

// DefaultCommands returns templates for a cc-compatible compiler driver.
func DefaultCommands() Commands {
	return Commands{
		Compile: `flags=""
for d in $NB_DEFINES; do flags="$flags -D$d"; done
for i in $NB_INCLUDES; do flags="$flags -I$i"; done
cc -c -fPIC $flags "$NB_SOURCE" -o "$NB_OUTPUT"`,
		LinkExecutable: `cc -o "$NB_OUTPUT" "$@" $NB_LIBRARIES`,
		LinkDynamic:    `cc -shared -o "$NB_OUTPUT" "$@" $NB_LIBRARIES`,
		LinkStatic:     `ar rcs "$NB_OUTPUT" "$@"`,
	}
}

var _ Toolchain = (*ShellToolchain)(nil)

// NewShell creates a shell toolchain planning onto opts.Graph.
func NewShell(opts ShellOptions) (*ShellToolchain, error) {
	if opts.Cache == nil || opts.Graph == nil {
		return nil, errors.New("shell toolchain requires a cache and an action graph")
	}
	required := []struct{ key, command string }{
		{"compile", opts.Commands.Compile},
		{"link_executable", opts.Commands.LinkExecutable},
		{"link_dynamic", opts.Commands.LinkDynamic},
		{"link_static", opts.Commands.LinkStatic},
	}
	for _, r := range required {
		if strings.TrimSpace(r.command) == "" {
			return nil, fmt.Errorf("toolchain.%s: %w", r.key, ErrMissingCommand)
		}
	}
	debug := opts.DebugExtensions
	if len(debug) == 0 {
		debug = opts.Platform.DefaultDebugExtensions
	}
	return &ShellToolchain{
		platform:        opts.Platform,
		commands:        opts.Commands,
		debugExtensions: debug,
		cache:           opts.Cache,
		graph:           opts.Graph,
	}, nil
}

// Platform implements Toolchain.
func (s *ShellToolchain) Platform() buildenv.Platform { return s.platform }

// DebugExtensions implements Toolchain.
func (s *ShellToolchain) DebugExtensions() []string { return s.debugExtensions }

// Compile plans one compile action per source file. Object files mirror
// the source layout below the module's intermediate directory.
func (s *ShellToolchain) Compile(m *module.Module, env *buildenv.CompileEnvironment) ([]*fsitem.FileItem, error) {
	if env.IntermediateDirectory == "" {
		return nil, fmt.Errorf("module %s has no intermediate directory", m.Name)
	}
	sources, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}

	defines := strings.Join(env.Definitions, " ")
	includes := strings.Join(env.IncludePaths, " ")
	var out []*fsitem.FileItem
	for _, src := range sources {
		rel, err := filepath.Rel(m.Directory.Path(), src.Path())
		if err != nil {
			return nil, err
		}
		obj := s.cache.GetFile(filepath.Join(env.IntermediateDirectory, rel+s.platform.ObjectExtension))
		err = s.graph.Add(&action.Action{
			Kind:        action.KindCompile,
			Description: fmt.Sprintf("Compile %s", filepath.ToSlash(filepath.Join(m.Name.String(), rel))),
			Command:     s.commands.Compile,
			Env: map[string]string{
				EnvModule:   m.Name.String(),
				EnvSource:   src.Path(),
				EnvOutput:   obj.Path(),
				EnvDefines:  defines,
				EnvIncludes: includes,
			},
			Inputs:  []*fsitem.FileItem{src},
			Outputs: []*fsitem.FileItem{obj},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return append(out, m.ResourceFiles(s.cache)...), nil
}

// Link plans one link per output path. For an import-library-only link on
// a platform without separate import libraries nothing is planned.
func (s *ShellToolchain) Link(env *buildenv.LinkEnvironment, importLibraryOnly bool) ([]*fsitem.FileItem, error) {
	if len(env.OutputFilePaths) == 0 {
		return nil, fmt.Errorf("binary %s has no output paths", env.Binary)
	}
	if importLibraryOnly {
		return s.linkImportLibrary(env)
	}

	command, kindName := s.commands.LinkExecutable, "executable"
	switch {
	case env.IsBuildingLibrary:
		command, kindName = s.commands.LinkStatic, "static library"
	case env.IsBuildingDLL:
		command, kindName = s.commands.LinkDynamic, "dynamic library"
	}

	inputs := env.InputFiles.Items()
	if !(env.IsCrossReferenced && !s.platform.HasSeparateImportLibrary()) {
		for _, lib := range env.DependencyLibraries {
			inputs = append(inputs, s.cache.GetFile(lib))
		}
	}
	args := paths(env.InputFiles.Items())

	var produced []*fsitem.FileItem
	for _, outPath := range env.OutputFilePaths {
		out := s.cache.GetFile(outPath)
		outputs := []*fsitem.FileItem{out}
		vars := s.linkEnv(env, outPath)
		if s.declaresImportLibrary(env) {
			lib := s.cache.GetFile(s.platform.ImportLibraryPath(env.IntermediateDirectory, outPath))
			outputs = append(outputs, lib)
			vars[EnvImportLib] = lib.Path()
		}
		vars[EnvOutputs] = strings.Join(paths(outputs), " ")
		err := s.graph.Add(&action.Action{
			Kind:        action.KindLink,
			Description: fmt.Sprintf("Link %s %s", kindName, filepath.Base(outPath)),
			Command:     command,
			Env:         vars,
			Args:        args,
			Inputs:      inputs,
			Outputs:     outputs,
		})
		if err != nil {
			return nil, err
		}
		produced = append(produced, outputs...)
	}
	return produced, nil
}

func (s *ShellToolchain) linkImportLibrary(env *buildenv.LinkEnvironment) ([]*fsitem.FileItem, error) {
	if !s.platform.HasSeparateImportLibrary() {
		return nil, nil
	}
	if strings.TrimSpace(s.commands.ImportLibrary) == "" {
		return nil, fmt.Errorf("toolchain.import_library: %w (needed by %s)", ErrMissingCommand, env.Binary)
	}
	inputs := env.InputFiles.Items()
	var produced []*fsitem.FileItem
	for _, outPath := range env.OutputFilePaths {
		lib := s.cache.GetFile(s.platform.ImportLibraryPath(env.IntermediateDirectory, outPath))
		vars := s.linkEnv(env, outPath)
		vars[EnvImportLib] = lib.Path()
		vars[EnvOutputs] = lib.Path()
		err := s.graph.Add(&action.Action{
			Kind:        action.KindImportLibrary,
			Description: fmt.Sprintf("Create import library %s", filepath.Base(lib.Path())),
			Command:     s.commands.ImportLibrary,
			Env:         vars,
			Args:        paths(inputs),
			Inputs:      inputs,
			Outputs:     []*fsitem.FileItem{lib},
		})
		if err != nil {
			return nil, err
		}
		produced = append(produced, lib)
	}
	return produced, nil
}

// declaresImportLibrary reports whether the full link owns the import
// library. A cross-referenced binary's import library comes from its
// import-library-only action.
func (s *ShellToolchain) declaresImportLibrary(env *buildenv.LinkEnvironment) bool {
	return env.IsBuildingDLL && env.HasExports && s.platform.HasSeparateImportLibrary() && !env.IsCrossReferenced
}

func (s *ShellToolchain) linkEnv(env *buildenv.LinkEnvironment, outPath string) map[string]string {
	vars := map[string]string{
		EnvOutput:    outPath,
		EnvLibraries: strings.Join(env.AdditionalLibraries, " "),
		EnvImportLib: "",
		EnvConsole:   flag(env.IsBuildingConsoleApplication),
		EnvExports:   flag(env.HasExports),
	}
	if env.EntryPointOverride != "" {
		vars[EnvEntryPoint] = env.EntryPointOverride
	}
	return vars
}

// PostBuild plans the configured post-build command, if any. Its output
// is a stamp file in the intermediate directory.
func (s *ShellToolchain) PostBuild(executable *fsitem.FileItem, env *buildenv.LinkEnvironment) ([]*fsitem.FileItem, error) {
	if strings.TrimSpace(s.commands.PostBuild) == "" {
		return nil, nil
	}
	stamp := s.cache.GetFile(filepath.Join(env.IntermediateDirectory, executable.Name()+postBuildSuffix))
	err := s.graph.Add(&action.Action{
		Kind:        action.KindPostBuild,
		Description: fmt.Sprintf("Post-build %s", executable.Name()),
		Command:     "set -e\n" + s.commands.PostBuild + "\n: > \"$NB_OUTPUT\"",
		Env: map[string]string{
			EnvExecutable: executable.Path(),
			EnvOutput:     stamp.Path(),
		},
		Inputs:  []*fsitem.FileItem{executable},
		Outputs: []*fsitem.FileItem{stamp},
	})
	if err != nil {
		return nil, err
	}
	return []*fsitem.FileItem{stamp}, nil
}

func paths(files []*fsitem.FileItem) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path()
	}
	return out
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return ""
}
