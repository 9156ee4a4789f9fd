// SPDX-License-Identifier: MPL-2.0

// Package issue is the catalog of nbuild failures a user can fix: missing
// or invalid descriptors, unknown modules, dependency cycles,
// restricted folder references and runtime dependency conflicts. Each
// entry carries a Markdown explanation that the CLI renders below the
// error, and ActionableError attaches an entry to an error chain.
package issue
