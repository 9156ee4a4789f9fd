// SPDX-License-Identifier: MPL-2.0

package platform

// Host OS names as reported by runtime.GOOS.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// FoldsCase reports whether file names on goos compare case-insensitively
// by default, so two paths differing only in case name the same file.
func FoldsCase(goos string) bool {
	return goos == Windows || goos == Darwin
}
