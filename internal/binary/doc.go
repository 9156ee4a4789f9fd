// SPDX-License-Identifier: MPL-2.0

// Package binary composes link environments. A Binary owns modules,
// compiles the ones bound to it, references the binaries that own the
// rest, and plans its link steps through a toolchain. Binaries that depend
// on each other are linked in two steps: the one marked to create its
// import library separately produces that library first, so the other can
// link against it.
package binary
