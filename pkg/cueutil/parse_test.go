// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

// Simple test schema for parsing tests
const testSchema = `
#TestConfig: {
	name:        string
	count:       int
	enabled:     bool
	description?: string
}
`

// TestConfig is a simple struct for testing generic parsing
type TestConfig struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Run("valid config parses successfully", func(t *testing.T) {
		data := []byte(`
name: "test"
count: 42
enabled: true
description: "A test config"
`)
		result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.Name != "test" {
			t.Errorf("expected name='test', got %q", result.Value.Name)
		}
		if result.Value.Count != 42 {
			t.Errorf("expected count=42, got %d", result.Value.Count)
		}
		if !result.Value.Enabled {
			t.Error("expected enabled=true")
		}
		if result.Value.Description != "A test config" {
			t.Errorf("expected description='A test config', got %q", result.Value.Description)
		}
	})

	t.Run("optional field can be omitted", func(t *testing.T) {
		data := []byte(`
name: "minimal"
count: 1
enabled: false
`)
		result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.Name != "minimal" {
			t.Errorf("expected name='minimal', got %q", result.Value.Name)
		}
		if result.Value.Description != "" {
			t.Errorf("expected empty description, got %q", result.Value.Description)
		}
	})

	t.Run("invalid type returns error", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "not a number"  // Should be int
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err == nil {
			t.Error("expected error for invalid type")
		}
	})

	t.Run("missing required field returns error", func(t *testing.T) {
		data := []byte(`
name: "test"
// count is missing
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err == nil {
			t.Error("expected error for missing required field")
		}
	})

	t.Run("WithFilename sets filename in errors", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "invalid"
enabled: true
`)
		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithFilename("my-config.cue"),
		)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "my-config.cue") {
			t.Errorf("error should contain filename, got: %v", err)
		}
	})
}

func TestParseModuleDescriptorShape(t *testing.T) {
	moduleSchema := `
#Module: {
	name: string & =~"^[A-Za-z_][A-Za-z0-9_]*$"
	public_dependencies?: [...string]
	runtime_dependencies?: [...{
		path:    string
		source?: string
	}]
}
`

	type RuntimeDependency struct {
		Path   string `json:"path"`
		Source string `json:"source,omitempty"`
	}
	type Module struct {
		Name                string              `json:"name"`
		PublicDependencies  []string            `json:"public_dependencies,omitempty"`
		RuntimeDependencies []RuntimeDependency `json:"runtime_dependencies,omitempty"`
	}

	t.Run("full descriptor parses successfully", func(t *testing.T) {
		data := []byte(`
name: "Engine"
public_dependencies: ["Core", "RenderCore"]
runtime_dependencies: [
	{path: "$(BinaryOutputDir)/Data/*.ini"},
	{path: "$(TargetOutputDir)/*.pak", source: "$(ModuleDir)/Paks/*.pak"},
]
`)
		result, err := ParseAndDecode[Module]([]byte(moduleSchema), data, "#Module")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}

		if result.Value.Name != "Engine" {
			t.Errorf("expected name='Engine', got %q", result.Value.Name)
		}
		if len(result.Value.RuntimeDependencies) != 2 {
			t.Errorf("expected 2 runtime dependencies, got %d", len(result.Value.RuntimeDependencies))
		}
		if result.Value.RuntimeDependencies[1].Source == "" {
			t.Error("expected second runtime dependency to carry a source pattern")
		}
	})

	t.Run("unknown field is rejected by closed definition", func(t *testing.T) {
		data := []byte(`
name: "Engine"
publicdeps: ["Core"]
`)
		_, err := ParseAndDecode[Module]([]byte(moduleSchema), data, "#Module", WithFilename("nbmodule.cue"))
		if err == nil {
			t.Fatal("expected error for unknown field")
		}
		if !strings.Contains(err.Error(), "nbmodule.cue") {
			t.Errorf("error should name the file, got: %v", err)
		}
	})

	t.Run("invalid name is rejected", func(t *testing.T) {
		_, err := ParseAndDecode[Module]([]byte(moduleSchema), []byte(`name: "2D"`), "#Module")
		if err == nil {
			t.Error("expected error for invalid module name")
		}
	})
}

func TestParseOptionalConfigShape(t *testing.T) {
	configSchema := `
#Config: {
	platform?: "win64" | "linux" | "mac"
	restricted_folders?: [...string]
	workers?: int & >=0
}
`

	type Config struct {
		Platform          string   `json:"platform,omitempty"`
		RestrictedFolders []string `json:"restricted_folders,omitempty"`
		Workers           int      `json:"workers,omitempty"`
	}

	t.Run("full config parses successfully", func(t *testing.T) {
		data := []byte(`
platform: "linux"
restricted_folders: ["NoRedist", "NotForLicensees"]
workers: 8
`)
		result, err := ParseAndDecode[Config]([]byte(configSchema), data, "#Config")
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}
		if result.Value.Platform != "linux" {
			t.Errorf("expected platform='linux', got %q", result.Value.Platform)
		}
		if len(result.Value.RestrictedFolders) != 2 {
			t.Errorf("expected 2 restricted folders, got %d", len(result.Value.RestrictedFolders))
		}
	})

	t.Run("empty config parses with WithConcrete(false)", func(t *testing.T) {
		result, err := ParseAndDecode[Config]([]byte(configSchema), []byte(`{}`), "#Config", WithConcrete(false))
		if err != nil {
			t.Fatalf("ParseAndDecode failed: %v", err)
		}
		if result.Value.Platform != "" {
			t.Errorf("expected empty platform, got %q", result.Value.Platform)
		}
	})

	t.Run("invalid enum value returns error", func(t *testing.T) {
		_, err := ParseAndDecode[Config]([]byte(configSchema), []byte(`platform: "amiga"`), "#Config")
		if err == nil {
			t.Error("expected error for invalid enum value")
		}
	})
}

func TestFileSizeLimit(t *testing.T) {
	t.Run("file within limit parses successfully", func(t *testing.T) {
		data := []byte(`
name: "test"
count: 1
enabled: true
`)
		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithMaxFileSize(1024), // 1KB limit
		)
		if err != nil {
			t.Errorf("expected success, got error: %v", err)
		}
	})

	t.Run("file exceeding limit returns error", func(t *testing.T) {
		// Create data larger than the limit
		data := make([]byte, 200)
		for i := range data {
			data[i] = 'a'
		}

		_, err := ParseAndDecode[TestConfig](
			[]byte(testSchema),
			data,
			"#TestConfig",
			WithMaxFileSize(100), // 100 byte limit
		)
		if err == nil {
			t.Error("expected error for oversized file")
		}
		if !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("error should mention size limit, got: %v", err)
		}
	})

	t.Run("default limit is applied", func(t *testing.T) {
		// Create data well under default limit
		data := []byte(`name: "test"
count: 1
enabled: true
`)
		_, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Errorf("expected success with default limit, got error: %v", err)
		}
	})
}

func TestParseAndDecodeSchemaErrors(t *testing.T) {
	data := []byte(`name: "Core"`)

	if _, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#Module"); err == nil ||
		!strings.Contains(err.Error(), "schema definition #Module not found") {
		t.Errorf("expected missing definition error, got %v", err)
	}
	if _, err := ParseAndDecode[TestConfig]([]byte("#Module: {"), data, "#Module"); err == nil ||
		!strings.Contains(err.Error(), "compiling schema") {
		t.Errorf("expected schema compile error, got %v", err)
	}
}

// Test that Unified value is accessible
func TestUnifiedValueAccess(t *testing.T) {
	data := []byte(`
name: "test"
count: 42
enabled: true
`)
	result, err := ParseAndDecode[TestConfig]([]byte(testSchema), data, "#TestConfig")
	if err != nil {
		t.Fatalf("ParseAndDecode failed: %v", err)
	}

	// Verify we can access the unified value
	if result.Unified.Err() != nil {
		t.Errorf("unified value has error: %v", result.Unified.Err())
	}
}
