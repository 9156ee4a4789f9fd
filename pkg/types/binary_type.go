// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/nbuild/nbuild/pkg/platform"
)

const (
	// BinaryExecutable is a program with an entry point.
	BinaryExecutable BinaryType = "Executable"
	// BinaryDynamicLibrary is a shared library loaded at runtime.
	BinaryDynamicLibrary BinaryType = "DynamicLibrary"
	// BinaryStaticLibrary is an archive linked into other binaries.
	BinaryStaticLibrary BinaryType = "StaticLibrary"
)

var binaryNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var (
	// ErrInvalidBinaryType is the sentinel error wrapped by InvalidBinaryTypeError.
	ErrInvalidBinaryType = errors.New("invalid binary type")
	// ErrInvalidBinaryName is the sentinel error wrapped by InvalidBinaryNameError.
	ErrInvalidBinaryName = errors.New("invalid binary name")
)

type (
	// BinaryType is the kind of artifact a binary links into.
	BinaryType string

	// InvalidBinaryTypeError is returned when a BinaryType is not one of
	// the known kinds.
	InvalidBinaryTypeError struct {
		Value BinaryType
	}

	// BinaryName identifies a binary within a target. Modules refer to
	// their owning binary by name rather than by pointer.
	BinaryName string

	// InvalidBinaryNameError is returned when a BinaryName is not a valid
	// file name stem.
	InvalidBinaryNameError struct {
		Value BinaryName
	}
)

// Validate returns an error if the type is not a known binary kind.
func (t BinaryType) Validate() error {
	switch t {
	case BinaryExecutable, BinaryDynamicLibrary, BinaryStaticLibrary:
		return nil
	default:
		return &InvalidBinaryTypeError{Value: t}
	}
}

// IsDynamicLibrary reports whether the binary is a shared library.
func (t BinaryType) IsDynamicLibrary() bool { return t == BinaryDynamicLibrary }

// IsStaticLibrary reports whether the binary is a static archive.
func (t BinaryType) IsStaticLibrary() bool { return t == BinaryStaticLibrary }

// String returns the type name.
func (t BinaryType) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidBinaryTypeError) Error() string {
	return fmt.Sprintf("invalid binary type %q (valid: %s, %s, %s)", e.Value, BinaryExecutable, BinaryDynamicLibrary, BinaryStaticLibrary)
}

// Unwrap returns ErrInvalidBinaryType for errors.Is() compatibility.
func (e *InvalidBinaryTypeError) Unwrap() error { return ErrInvalidBinaryType }

// Validate returns an error if the name is empty, contains anything but
// letters, digits, underscores and dashes, or is a reserved device name.
func (n BinaryName) Validate() error {
	if !binaryNamePattern.MatchString(string(n)) || platform.IsReservedFileName(string(n)) {
		return &InvalidBinaryNameError{Value: n}
	}
	return nil
}

// String returns the name.
func (n BinaryName) String() string { return string(n) }

// Error implements the error interface.
func (e *InvalidBinaryNameError) Error() string {
	return fmt.Sprintf("invalid binary name %q", e.Value)
}

// Unwrap returns ErrInvalidBinaryName for errors.Is() compatibility.
func (e *InvalidBinaryNameError) Unwrap() error { return ErrInvalidBinaryName }
