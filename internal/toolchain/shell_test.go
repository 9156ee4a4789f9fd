// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/internal/testutil"
)

// echoCommands write their inputs into their outputs so plans can run
// without a compiler.
var echoCommands = Commands{
	Compile:        `echo "$NB_SOURCE $NB_DEFINES" > "$NB_OUTPUT"`,
	LinkExecutable: `for f in "$@"; do echo "$f"; done > "$NB_OUTPUT"`,
	LinkDynamic:    `for f in "$@"; do echo "$f"; done > "$NB_OUTPUT"; if [ -n "$NB_IMPORT_LIB" ]; then echo lib > "$NB_IMPORT_LIB"; fi`,
	LinkStatic:     `for f in "$@"; do echo "$f"; done > "$NB_OUTPUT"`,
	ImportLibrary:  `echo lib > "$NB_IMPORT_LIB"`,
	PostBuild:      `echo post > "$NB_EXECUTABLE.post"`,
}

func newShell(t *testing.T, p buildenv.Platform) (*ShellToolchain, *fsitem.Cache, *action.Graph) {
	t.Helper()
	c := fsitem.NewCache()
	g := action.NewGraph()
	tc, err := NewShell(ShellOptions{Platform: p, Commands: echoCommands, Cache: c, Graph: g})
	require.NoError(t, err)
	return tc, c, g
}

func TestNewShellRequiresCommands(t *testing.T) {
	t.Parallel()

	cmds := echoCommands
	cmds.LinkDynamic = " "
	_, err := NewShell(ShellOptions{Platform: buildenv.Linux, Commands: cmds, Cache: fsitem.NewCache(), Graph: action.NewGraph()})
	require.ErrorIs(t, err, ErrMissingCommand)
	assert.Contains(t, err.Error(), "toolchain.link_dynamic")
}

func TestDebugExtensionsDefaultToPlatform(t *testing.T) {
	t.Parallel()

	tc, _, _ := newShell(t, buildenv.Windows)
	assert.Equal(t, []string{".pdb"}, tc.DebugExtensions())

	custom, err := NewShell(ShellOptions{
		Platform: buildenv.Linux, Commands: echoCommands, DebugExtensions: []string{".sym"},
		Cache: fsitem.NewCache(), Graph: action.NewGraph(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{".sym"}, custom.DebugExtensions())
}

func TestCompilePlansOneActionPerSource(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"Core/nbmodule.cue":     `name: "Core"`,
		"Core/a.cpp":            "",
		"Core/Private/b.cpp":    "",
		"Core/Resources/ui.res": "",
	})
	tc, c, g := newShell(t, buildenv.Linux)
	m := module.New("Core", c.GetDirectory(filepath.Join(root, "Core")))
	m.Resources = []string{filepath.Join(root, "Core", "Resources", "ui.res")}
	env := &buildenv.CompileEnvironment{IntermediateDirectory: filepath.Join(root, "Intermediate", "Core"), Definitions: []string{"A=1", "B"}}

	files, err := tc.Compile(m, env)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(root, "Intermediate", "Core", "a.cpp.o"), files[0].Path())
	assert.Equal(t, filepath.Join(root, "Intermediate", "Core", "Private", "b.cpp.o"), files[1].Path())
	assert.Equal(t, "ui.res", files[2].Name())

	actions := g.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, action.KindCompile, actions[0].Kind)
	assert.Equal(t, "Compile Core/a.cpp", actions[0].Description)
	assert.Equal(t, "A=1 B", actions[0].Env[EnvDefines])
	assert.Equal(t, "Core", actions[0].Env[EnvModule])
}

func TestCompileRequiresIntermediateDirectory(t *testing.T) {
	t.Parallel()

	tc, c, _ := newShell(t, buildenv.Linux)
	_, err := tc.Compile(module.New("Core", c.GetDirectory(t.TempDir())), &buildenv.CompileEnvironment{})
	assert.Error(t, err)
}

func TestLinkDLLOnImportLibraryPlatform(t *testing.T) {
	t.Parallel()

	tc, c, g := newShell(t, buildenv.Windows)
	dir := t.TempDir()
	env := &buildenv.LinkEnvironment{
		Binary:                "Core",
		OutputFilePaths:       []string{filepath.Join(dir, "bin", "Core.dll")},
		IntermediateDirectory: filepath.Join(dir, "int"),
		IsBuildingDLL:         true,
		HasExports:            true,
	}
	env.InputFiles.Add(c.GetFile(filepath.Join(dir, "int", "core.obj")))
	env.AddLibraries("user32.lib")
	env.AddDependencyLibraries(filepath.Join(dir, "int", "Other.lib"))

	out, err := tc.Link(env, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, filepath.Join(dir, "int", "Core.lib"), out[1].Path())

	a := g.Actions()[0]
	assert.Equal(t, action.KindLink, a.Kind)
	assert.Equal(t, "Link dynamic library Core.dll", a.Description)
	assert.Len(t, a.Inputs, 2, "dependency libraries are prerequisites")
	assert.Equal(t, []string{filepath.Join(dir, "int", "core.obj")}, a.Args)
	assert.Equal(t, "user32.lib "+filepath.Join(dir, "int", "Other.lib"), a.Env[EnvLibraries])
	assert.Equal(t, out[1].Path(), a.Env[EnvImportLib])
	assert.Equal(t, "1", a.Env[EnvExports])
}

func TestLinkCrossReferenced(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	newEnv := func(c *fsitem.Cache, p buildenv.Platform, dependencyLib string) *buildenv.LinkEnvironment {
		env := &buildenv.LinkEnvironment{
			Binary:                "B",
			OutputFilePaths:       []string{filepath.Join(dir, "bin", "B"+p.DynamicLibraryExtension)},
			IntermediateDirectory: filepath.Join(dir, "int", "B"),
			IsBuildingDLL:         true,
			HasExports:            true,
			IsCrossReferenced:     true,
		}
		env.InputFiles.Add(c.GetFile(filepath.Join(dir, "int", "B", "b.o")))
		env.AddDependencyLibraries(dependencyLib)
		return env
	}

	t.Run("import library platform", func(t *testing.T) {
		t.Parallel()
		tc, c, g := newShell(t, buildenv.Windows)
		env := newEnv(c, buildenv.Windows, filepath.Join(dir, "int", "A", "A.lib"))

		lib, err := tc.Link(env, true)
		require.NoError(t, err)
		require.Len(t, lib, 1)
		full, err := tc.Link(env, false)
		require.NoError(t, err)
		require.Len(t, full, 1, "the import-only action owns the import library")

		actions := g.Actions()
		require.Len(t, actions, 2)
		assert.Equal(t, action.KindImportLibrary, actions[0].Kind)
		assert.Len(t, actions[0].Inputs, 1, "import library does not wait for other binaries")
		assert.Len(t, actions[1].Inputs, 2)
	})

	t.Run("direct link platform", func(t *testing.T) {
		t.Parallel()
		tc, c, g := newShell(t, buildenv.Linux)
		env := newEnv(c, buildenv.Linux, filepath.Join(dir, "bin", "A.so"))

		lib, err := tc.Link(env, true)
		require.NoError(t, err)
		assert.Empty(t, lib)
		_, err = tc.Link(env, false)
		require.NoError(t, err)

		actions := g.Actions()
		require.Len(t, actions, 1)
		assert.Len(t, actions[0].Inputs, 1, "other binaries' libraries are not prerequisites")
		assert.Contains(t, actions[0].Env[EnvLibraries], "A.so")
	})
}

func TestLinkFatBinaryPlansOneActionPerOutput(t *testing.T) {
	t.Parallel()

	tc, c, g := newShell(t, buildenv.Mac)
	dir := t.TempDir()
	env := &buildenv.LinkEnvironment{
		Binary:          "Game",
		OutputFilePaths: []string{filepath.Join(dir, "Game-arm64"), filepath.Join(dir, "Game-x86_64")},
	}
	env.InputFiles.Add(c.GetFile(filepath.Join(dir, "main.o")))

	out, err := tc.Link(env, false)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 2, g.Len())
}

func TestPlanRunsEndToEnd(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"Game/nbmodule.cue": `name: "Game"`,
		"Game/main.cpp":     "",
	})
	tc, c, g := newShell(t, buildenv.Linux)
	m := module.New("Game", c.GetDirectory(filepath.Join(root, "Game")))
	objs, err := tc.Compile(m, &buildenv.CompileEnvironment{IntermediateDirectory: filepath.Join(root, "int"), Definitions: []string{"NB_GAME=1"}})
	require.NoError(t, err)

	env := &buildenv.LinkEnvironment{Binary: "Game", OutputFilePaths: []string{filepath.Join(root, "bin", "Game")}, IntermediateDirectory: filepath.Join(root, "int")}
	env.InputFiles.Add(objs...)
	linked, err := tc.Link(env, false)
	require.NoError(t, err)
	post, err := tc.PostBuild(linked[0], env)
	require.NoError(t, err)
	require.Len(t, post, 1)

	summary, err := (&action.Executor{Cache: c}).Run(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Ran)
	assert.Equal(t, objs[0].Path()+"\n", testutil.MustReadFile(t, linked[0].Path()))
	assert.Equal(t, "post\n", testutil.MustReadFile(t, linked[0].Path()+".post"))
	assert.True(t, post[0].Exists())
}
