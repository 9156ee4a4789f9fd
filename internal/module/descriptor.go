// SPDX-License-Identifier: MPL-2.0

package module

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/nbuild/nbuild/pkg/cueutil"
)

// DescriptorFileName is the file that marks a module directory.
const DescriptorFileName = "nbmodule.cue"

//go:embed nbmodule_schema.cue
var moduleSchema []byte

// Descriptor is the decoded content of an nbmodule.cue file.
type Descriptor struct {
	Name                 string                  `json:"name"`
	PublicDependencies   []string                `json:"public_dependencies,omitempty"`
	PrivateDependencies  []string                `json:"private_dependencies,omitempty"`
	DynamicallyLoaded    []string                `json:"dynamically_loaded,omitempty"`
	CircularDependencies []string                `json:"circular_dependencies,omitempty"`
	Sources              []string                `json:"sources,omitempty"`
	Definitions          []string                `json:"definitions,omitempty"`
	PublicDefinitions    []string                `json:"public_definitions,omitempty"`
	PublicIncludePaths   []string                `json:"public_include_paths,omitempty"`
	PublicLibraries      []string                `json:"public_libraries,omitempty"`
	Resources            []string                `json:"resources,omitempty"`
	RuntimeDependencies  []RuntimeDependencyRule `json:"runtime_dependencies,omitempty"`
	Precompile           bool                    `json:"precompile,omitempty"`
}

// ParseDescriptor validates data against the module schema. filename is
// used in error messages.
func ParseDescriptor(data []byte, filename string) (*Descriptor, error) {
	result, err := cueutil.ParseAndDecode[Descriptor](moduleSchema, data, "#Module", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// LoadDescriptor reads and parses the descriptor at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module descriptor: %w", err)
	}
	return ParseDescriptor(data, path)
}
