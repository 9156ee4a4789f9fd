// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestFoldsCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		want bool
	}{
		{Windows, true},
		{Darwin, true},
		{Linux, false},
		{"freebsd", false},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			if got := FoldsCase(tt.goos); got != tt.want {
				t.Errorf("FoldsCase(%q) = %v, want %v", tt.goos, got, tt.want)
			}
		})
	}
}
