// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the nbuild command line interface.
//
// The App type is the composition root: every command receives it and builds
// its per-invocation session (configuration, logger, file cache, target) from
// the persistent flags.
package cmd
