// SPDX-License-Identifier: MPL-2.0

package runtimedeps

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownVariable is the sentinel wrapped by UnknownVariableError.
var ErrUnknownVariable = errors.New("unknown path variable")

var variablePattern = regexp.MustCompile(`\$\(([A-Za-z]+)\)`)

type (
	// Variables are the directories a rule path may refer to.
	Variables struct {
		BinaryOutputDir string
		TargetOutputDir string
		ModuleDir       string
		ProjectDir      string
		EngineDir       string
	}

	// UnknownVariableError is returned for a $(Name) that is not defined.
	UnknownVariableError struct {
		Name string
		Path string
	}
)

func (v Variables) lookup(name string) (string, bool) {
	switch name {
	case "BinaryOutputDir":
		return v.BinaryOutputDir, true
	case "TargetOutputDir":
		return v.TargetOutputDir, true
	case "ModuleDir":
		return v.ModuleDir, true
	case "ProjectDir":
		return v.ProjectDir, true
	case "EngineDir":
		return v.EngineDir, v.EngineDir != ""
	default:
		return "", false
	}
}

// Expand replaces every $(Name) in path.
func (v Variables) Expand(path string) (string, error) {
	var unknown error
	out := variablePattern.ReplaceAllStringFunc(path, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		value, ok := v.lookup(name)
		if !ok && unknown == nil {
			unknown = &UnknownVariableError{Name: name, Path: path}
		}
		return value
	})
	if unknown != nil {
		return "", unknown
	}
	return out, nil
}

// Error implements the error interface.
func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("%q uses undefined variable $(%s)", e.Path, e.Name)
}

// Unwrap returns ErrUnknownVariable for errors.Is() compatibility.
func (e *UnknownVariableError) Unwrap() error { return ErrUnknownVariable }
