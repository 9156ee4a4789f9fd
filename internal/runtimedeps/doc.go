// SPDX-License-Identifier: MPL-2.0

// Package runtimedeps expands module runtime dependency rules into the
// list of files staged next to a binary. Rules without a source name
// files in place, optionally by wildcard; rules with a source map each
// matching source file to a target path, and every target may be claimed
// by only one source.
package runtimedeps
