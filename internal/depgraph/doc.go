// SPDX-License-Identifier: MPL-2.0

// Package depgraph walks the module dependency graph. AllDependencies and
// BinaryModules produce post-ordered closures that tolerate cycles through
// a shared visited set; FindModuleReferences builds the first-discovery
// spanning forest used to explain why a module is reachable.
package depgraph
