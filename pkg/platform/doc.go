// SPDX-License-Identifier: MPL-2.0

// Package platform holds host OS names and the file name rules that every
// target platform must satisfy.
package platform
