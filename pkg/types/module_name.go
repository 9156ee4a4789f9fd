// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nbuild/nbuild/pkg/platform"
)

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type (
	// ModuleName identifies a module. Names compare case-insensitively;
	// use Key for map lookups and the raw value for display.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName is empty or
	// contains characters other than letters, digits and underscores.
	InvalidModuleNameError struct {
		Value ModuleName
	}
)

// Key returns the case-folded lookup key for the name.
func (n ModuleName) Key() string { return strings.ToLower(string(n)) }

// Equal reports whether two names refer to the same module.
func (n ModuleName) Equal(other ModuleName) bool { return strings.EqualFold(string(n), string(other)) }

// String returns the name as declared.
func (n ModuleName) String() string { return string(n) }

// Validate returns an error if the name is not a valid identifier or is a
// reserved device name.
func (n ModuleName) Validate() error {
	if !moduleNamePattern.MatchString(string(n)) || platform.IsReservedFileName(string(n)) {
		return &InvalidModuleNameError{Value: n}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: must be an identifier (letters, digits, underscores) and not a reserved device name", e.Value)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }
