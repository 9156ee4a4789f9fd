// SPDX-License-Identifier: MPL-2.0

// Package target turns an nbtarget.cue descriptor and the modules found
// under its roots into a set of binaries, and builds them: link
// environments are composed in parallel, the planned actions run through
// the executor, runtime dependencies are staged and a receipt of the build
// products is written.
package target
