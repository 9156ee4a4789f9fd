// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestBinaryTypeValidate(t *testing.T) {
	t.Parallel()

	for _, valid := range []BinaryType{BinaryExecutable, BinaryDynamicLibrary, BinaryStaticLibrary} {
		if err := valid.Validate(); err != nil {
			t.Errorf("BinaryType(%q).Validate() = %v, want nil", valid, err)
		}
	}

	err := BinaryType("Plugin").Validate()
	if !errors.Is(err, ErrInvalidBinaryType) {
		t.Fatalf("expected ErrInvalidBinaryType, got %v", err)
	}
	var typed *InvalidBinaryTypeError
	if !errors.As(err, &typed) || typed.Value != "Plugin" {
		t.Errorf("expected *InvalidBinaryTypeError for Plugin, got %T", err)
	}
}

func TestBinaryNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value     BinaryName
		wantValid bool
	}{
		{"Game", true},
		{"Game-Core", true},
		{"", false},
		{"-Game", false},
		{"bin/Game", false},
		{"CON", false},
		{"Aux", false},
	}
	for _, tt := range tests {
		err := tt.value.Validate()
		if (err == nil) != tt.wantValid {
			t.Errorf("BinaryName(%q).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
		}
	}
}

func TestProductTypeFor(t *testing.T) {
	t.Parallel()

	tests := map[BinaryType]BuildProductType{
		BinaryExecutable:     ProductExecutable,
		BinaryDynamicLibrary: ProductDynamicLibrary,
		BinaryStaticLibrary:  ProductBuildResource,
	}
	for in, want := range tests {
		if got := ProductTypeFor(in); got != want {
			t.Errorf("ProductTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRuntimeDependencyTypeOrDefault(t *testing.T) {
	t.Parallel()

	if got := RuntimeDependencyType("").OrDefault(); got != RuntimeNonUFS {
		t.Errorf("zero value OrDefault() = %q, want %q", got, RuntimeNonUFS)
	}
	if got := RuntimeUFS.OrDefault(); got != RuntimeUFS {
		t.Errorf("UFS OrDefault() = %q", got)
	}
	if err := RuntimeDependencyType("Packed").Validate(); !errors.Is(err, ErrInvalidRuntimeDependencyType) {
		t.Errorf("expected ErrInvalidRuntimeDependencyType, got %v", err)
	}
}
