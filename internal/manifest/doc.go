// SPDX-License-Identifier: MPL-2.0

// Package manifest reads and writes the TOML files a build leaves behind:
// the per-module precompiled manifest listing the files a precompiled
// module produced, and the per-target build receipt.
package manifest
