// SPDX-License-Identifier: MPL-2.0

// Package buildenv holds the environments passed to a toolchain: the
// platform description, the compile environment for a module and the link
// environment composed for a binary. Environments are transient values
// rebuilt for every build; Clone gives the console variant and per-module
// compiles their own copy.
package buildenv
