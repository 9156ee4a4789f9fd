// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
)

// Toolchain plans the build steps of one platform.
type Toolchain interface {
	// Platform returns the platform conventions the toolchain targets.
	Platform() buildenv.Platform
	// Compile plans compilation of m and returns its object files and
	// compiled resources.
	Compile(m *module.Module, env *buildenv.CompileEnvironment) ([]*fsitem.FileItem, error)
	// Link plans a link of env. With importLibraryOnly set only the
	// import library is produced.
	Link(env *buildenv.LinkEnvironment, importLibraryOnly bool) ([]*fsitem.FileItem, error)
	// PostBuild plans steps that follow linking an executable.
	PostBuild(executable *fsitem.FileItem, env *buildenv.LinkEnvironment) ([]*fsitem.FileItem, error)
	// DebugExtensions lists the symbol file extensions written next to a
	// linked binary.
	DebugExtensions() []string
}
