// SPDX-License-Identifier: MPL-2.0

// Package fsitem keeps a canonical, shared model of the filesystem for one
// build process.
//
// A Cache hands out exactly one DirectoryItem or FileItem per canonical path;
// every caller that asks for the same path gets the same pointer, so nodes
// can be compared by identity and used as map keys. Attributes and child
// lists are read from disk lazily and then kept until Refresh is called on
// the node. Nothing is invalidated automatically: code that writes to the
// filesystem during a build refreshes the nodes it touched.
//
// I/O failures while reading attributes or listing a directory are reported
// as "does not exist".
package fsitem
