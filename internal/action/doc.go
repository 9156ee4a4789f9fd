// SPDX-License-Identifier: MPL-2.0

// Package action holds the planned build steps and runs them. Toolchains
// append Actions to a Graph; an action depends on whichever action
// produces one of its inputs. The Executor runs ready actions in parallel,
// interprets their commands with mvdan.cc/sh and skips actions whose
// outputs are newer than their inputs.
package action
