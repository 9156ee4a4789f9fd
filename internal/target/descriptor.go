// SPDX-License-Identifier: MPL-2.0

package target

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/nbuild/nbuild/pkg/cueutil"
	"github.com/nbuild/nbuild/pkg/types"
)

// DescriptorFileName is the file that marks a project directory.
const DescriptorFileName = "nbtarget.cue"

const (
	// TypeGame targets get NB_GAME=1 and hide exports by default.
	TypeGame Type = "game"
	// TypeProgram targets are standalone tools.
	TypeProgram Type = "program"

	defaultLaunchModule = "Launch"
)

//go:embed nbtarget_schema.cue
var targetSchema []byte

type (
	// Type is the kind of target.
	Type string

	// Descriptor is the decoded content of an nbtarget.cue file.
	Descriptor struct {
		Name                      string             `json:"name"`
		Type                      Type               `json:"type"`
		Monolithic                bool               `json:"monolithic"`
		LaunchModule              string             `json:"launch_module"`
		ModuleRoots               []string           `json:"module_roots"`
		EngineDir                 string             `json:"engine_dir,omitempty"`
		Definitions               []string           `json:"definitions,omitempty"`
		BuildAdditionalConsoleApp bool               `json:"build_additional_console_app,omitempty"`
		Binaries                  []BinaryDescriptor `json:"binaries,omitempty"`
	}

	// BinaryDescriptor declares one binary and the modules it starts from.
	BinaryDescriptor struct {
		Name                          string           `json:"name"`
		Type                          types.BinaryType `json:"type"`
		Modules                       []string         `json:"modules"`
		AllowExports                  bool             `json:"allow_exports,omitempty"`
		CreateImportLibrarySeparately bool             `json:"create_import_library_separately,omitempty"`
		BuildAdditionalConsoleApp     bool             `json:"build_additional_console_app,omitempty"`
		Precompiled                   bool             `json:"precompiled,omitempty"`
		Architectures                 []string         `json:"architectures,omitempty"`
	}
)

// ParseDescriptor validates data against the target schema.
func ParseDescriptor(data []byte, filename string) (*Descriptor, error) {
	result, err := cueutil.ParseAndDecode[Descriptor](targetSchema, data, "#Target", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	d := result.Value
	if d.Type == "" {
		d.Type = TypeGame
	}
	if d.LaunchModule == "" {
		d.LaunchModule = defaultLaunchModule
	}
	if len(d.ModuleRoots) == 0 {
		d.ModuleRoots = []string{"Source"}
	}
	return d, nil
}

// LoadDescriptor reads and parses the descriptor at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading target descriptor: %w", err)
	}
	return ParseDescriptor(data, path)
}
