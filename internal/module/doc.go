// SPDX-License-Identifier: MPL-2.0

// Package module models compilation units: their declared dependencies,
// the rules they contribute to compile and link environments, and their
// runtime dependency rules. Modules are owned by a Table; a binary refers to
// the modules it builds, and a module records the name of the binary that
// owns it exactly once.
//
// Modules are declared in nbmodule.cue files validated against an embedded
// CUE schema.
package module
