// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

const (
	// RuntimeNonUFS files are staged loose next to the binary.
	RuntimeNonUFS RuntimeDependencyType = "NonUFS"
	// RuntimeUFS files are staged into the packaged file system.
	RuntimeUFS RuntimeDependencyType = "UFS"
	// RuntimeDebugNonUFS files are only staged for debug builds.
	RuntimeDebugNonUFS RuntimeDependencyType = "DebugNonUFS"
	// RuntimeSystemNonUFS files come from the system and are never packaged.
	RuntimeSystemNonUFS RuntimeDependencyType = "SystemNonUFS"
)

// ErrInvalidRuntimeDependencyType is the sentinel error wrapped by
// InvalidRuntimeDependencyTypeError.
var ErrInvalidRuntimeDependencyType = errors.New("invalid runtime dependency type")

type (
	// RuntimeDependencyType says how a runtime dependency is staged.
	RuntimeDependencyType string

	// InvalidRuntimeDependencyTypeError is returned for an unknown type.
	InvalidRuntimeDependencyTypeError struct {
		Value RuntimeDependencyType
	}
)

// Validate returns an error if the type is unknown. The zero value is
// accepted and treated as RuntimeNonUFS.
func (t RuntimeDependencyType) Validate() error {
	switch t {
	case "", RuntimeNonUFS, RuntimeUFS, RuntimeDebugNonUFS, RuntimeSystemNonUFS:
		return nil
	default:
		return &InvalidRuntimeDependencyTypeError{Value: t}
	}
}

// OrDefault returns RuntimeNonUFS for the zero value.
func (t RuntimeDependencyType) OrDefault() RuntimeDependencyType {
	if t == "" {
		return RuntimeNonUFS
	}
	return t
}

// Error implements the error interface.
func (e *InvalidRuntimeDependencyTypeError) Error() string {
	return fmt.Sprintf("invalid runtime dependency type %q", e.Value)
}

// Unwrap returns ErrInvalidRuntimeDependencyType for errors.Is() compatibility.
func (e *InvalidRuntimeDependencyTypeError) Unwrap() error { return ErrInvalidRuntimeDependencyType }
