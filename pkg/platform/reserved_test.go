// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsReservedFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"CON lowercase", "con", true},
		{"CON mixed case", "Con", true},
		{"NUL", "NUL", true},
		{"COM1", "com1", true},
		{"LPT9", "LPT9", true},
		{"with extension", "aux.dll", true},
		{"double extension", "nul.tar.gz", true},

		{"plain binary", "Demo", false},
		{"prefix only", "Console", false},
		{"COM10", "COM10", false},
		{"dashed name", "CON-Editor", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsReservedFileName(tt.input); got != tt.expected {
				t.Errorf("IsReservedFileName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
