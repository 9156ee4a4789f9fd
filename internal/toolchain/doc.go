// SPDX-License-Identifier: MPL-2.0

// Package toolchain defines how binaries are compiled and linked. A
// Toolchain never runs processes itself: it plans actions on an
// action.Graph and returns the files those actions will produce.
//
// ShellToolchain plans actions from shell command templates. Templates see
// their inputs through NB_* environment variables and, for links, as
// positional parameters.
package toolchain
