// SPDX-License-Identifier: MPL-2.0

// Package types holds the small value types shared by the build graph:
// module and binary names, binary and product kinds, runtime dependency
// kinds, filesystem paths and exit codes. Each type validates itself and
// reports failures through a typed error that wraps a package sentinel.
package types
