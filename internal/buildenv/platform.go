// SPDX-License-Identifier: MPL-2.0

package buildenv

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nbuild/nbuild/pkg/platform"
	"github.com/nbuild/nbuild/pkg/types"
)

// ErrUnknownPlatform is returned by PlatformByName for an unknown name.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform describes the file naming and linking conventions of a target
// platform.
type Platform struct {
	// Name is the platform identifier used in output directories.
	Name string
	// ExecutableExtension, DynamicLibraryExtension and
	// StaticLibraryExtension name the link outputs.
	ExecutableExtension     string
	DynamicLibraryExtension string
	StaticLibraryExtension  string
	// ObjectExtension names compile outputs.
	ObjectExtension string
	// ImportLibraryExtension names the stub library produced for a DLL.
	ImportLibraryExtension string
	// LinksSharedObjectsDirectly is set when dependents link against the
	// shared library itself, so no separate import library exists.
	LinksSharedObjectsDirectly bool
	// UsesResourceFiles is set when binaries embed compiled resources.
	UsesResourceFiles bool
	// DefaultDebugExtensions are the symbol file extensions produced next
	// to a linked binary when debug info is enabled.
	DefaultDebugExtensions []string
}

var (
	// Windows links against import libraries and embeds resources.
	Windows = Platform{
		Name:                    "Win64",
		ExecutableExtension:     ".exe",
		DynamicLibraryExtension: ".dll",
		StaticLibraryExtension:  ".lib",
		ObjectExtension:         ".obj",
		ImportLibraryExtension:  ".lib",
		UsesResourceFiles:       true,
		DefaultDebugExtensions:  []string{".pdb"},
	}

	// Linux links directly against shared objects.
	Linux = Platform{
		Name:                       "Linux",
		DynamicLibraryExtension:    ".so",
		StaticLibraryExtension:     ".a",
		ObjectExtension:            ".o",
		LinksSharedObjectsDirectly: true,
		DefaultDebugExtensions:     []string{".debug"},
	}

	// Mac links directly against dynamic libraries.
	Mac = Platform{
		Name:                       "Mac",
		DynamicLibraryExtension:    ".dylib",
		StaticLibraryExtension:     ".a",
		ObjectExtension:            ".o",
		LinksSharedObjectsDirectly: true,
		DefaultDebugExtensions:     []string{".dSYM"},
	}
)

// PlatformByName resolves a configured platform name. The empty name
// selects the host platform.
func PlatformByName(name string) (Platform, error) {
	switch strings.ToLower(name) {
	case "":
		return HostPlatform(), nil
	case "win64", "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	case "mac", "macos", "darwin":
		return Mac, nil
	default:
		return Platform{}, fmt.Errorf("%w %q (valid: win64, linux, mac)", ErrUnknownPlatform, name)
	}
}

// HostPlatform returns the platform the process runs on.
func HostPlatform() Platform {
	switch runtime.GOOS {
	case platform.Windows:
		return Windows
	case platform.Darwin:
		return Mac
	default:
		return Linux
	}
}

// OutputExtension returns the extension of a binary's link output.
func (p Platform) OutputExtension(t types.BinaryType) string {
	switch t {
	case types.BinaryDynamicLibrary:
		return p.DynamicLibraryExtension
	case types.BinaryStaticLibrary:
		return p.StaticLibraryExtension
	default:
		return p.ExecutableExtension
	}
}

// HasSeparateImportLibrary reports whether dependents of a DLL link against
// a stub library instead of the DLL itself.
func (p Platform) HasSeparateImportLibrary() bool {
	return !p.LinksSharedObjectsDirectly
}

// ImportLibraryPath returns where the import library of the binary linked
// to outputPath is written: its base name in intermediateDir with the
// import library extension.
func (p Platform) ImportLibraryPath(intermediateDir, outputPath string) string {
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(intermediateDir, stem+p.ImportLibraryExtension)
}
