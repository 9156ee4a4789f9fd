// SPDX-License-Identifier: MPL-2.0

package buildenv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/pkg/types"
)

func TestFileSetKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	c := fsitem.NewCache()
	root := t.TempDir()
	a := c.GetFile(filepath.Join(root, "a.o"))
	b := c.GetFile(filepath.Join(root, "b.o"))
	pch := c.GetFile(filepath.Join(root, "shared.pch.o"))

	var set FileSet
	assert.Equal(t, 2, set.Add(pch, a))
	assert.Equal(t, 1, set.Add(b, pch))
	assert.Equal(t, 0, set.Add(c.GetFile(filepath.Join(root, "a.o"))))

	assert.Equal(t, []*fsitem.FileItem{pch, a, b}, set.Items())

	set.RemoveFunc(func(f *fsitem.FileItem) bool { return f == a })
	assert.Equal(t, []*fsitem.FileItem{pch, b}, set.Items())
	assert.False(t, set.Contains(a))
	assert.Equal(t, 1, set.Add(a))
}

func TestLinkEnvironmentCloneIsIndependent(t *testing.T) {
	t.Parallel()

	c := fsitem.NewCache()
	root := t.TempDir()
	env := &LinkEnvironment{OutputFilePaths: []string{"/out/Game.exe"}}
	env.InputFiles.Add(c.GetFile(filepath.Join(root, "main.o")))
	env.AddLibraries("/lib/Core.lib")

	clone := env.Clone()
	clone.OutputFilePaths[0] = "/out/Game-Cmd.exe"
	clone.InputFiles.Add(c.GetFile(filepath.Join(root, "extra.o")))
	clone.AddLibraries("/lib/Other.lib")
	clone.IsBuildingConsoleApplication = true

	assert.Equal(t, []string{"/out/Game.exe"}, env.OutputFilePaths)
	assert.Equal(t, 1, env.InputFiles.Len())
	assert.Equal(t, []string{"/lib/Core.lib"}, env.AdditionalLibraries)
	assert.False(t, env.IsBuildingConsoleApplication)
}

func TestPlatformByName(t *testing.T) {
	t.Parallel()

	p, err := PlatformByName("win64")
	require.NoError(t, err)
	assert.True(t, p.HasSeparateImportLibrary())
	assert.Equal(t, ".dll", p.OutputExtension(types.BinaryDynamicLibrary))

	p, err = PlatformByName("Linux")
	require.NoError(t, err)
	assert.False(t, p.HasSeparateImportLibrary())
	assert.Equal(t, ".a", p.OutputExtension(types.BinaryStaticLibrary))
	assert.Empty(t, p.OutputExtension(types.BinaryExecutable))

	_, err = PlatformByName("amiga")
	assert.True(t, errors.Is(err, ErrUnknownPlatform))
}

func TestAddDependencyLibraries(t *testing.T) {
	t.Parallel()

	env := &LinkEnvironment{}
	env.AddLibraries("/sdk/z.lib")
	env.AddDependencyLibraries("/int/Core/Core.lib", "/sdk/z.lib")
	env.AddDependencyLibraries("/int/Core/Core.lib")

	assert.Equal(t, []string{"/sdk/z.lib", "/int/Core/Core.lib"}, env.AdditionalLibraries)
	assert.Equal(t, []string{"/int/Core/Core.lib", "/sdk/z.lib"}, env.DependencyLibraries)
}

func TestImportLibraryPath(t *testing.T) {
	t.Parallel()

	got := Windows.ImportLibraryPath(filepath.Join("int", "Core"), filepath.Join("bin", "Game-Core.dll"))
	assert.Equal(t, filepath.Join("int", "Core", "Game-Core.lib"), got)
}
