// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/nbuild/nbuild/pkg/types"
)

// ErrMissingManifest is the sentinel wrapped by MissingManifestError.
var ErrMissingManifest = errors.New("manifest not found")

type (
	// Precompiled lists the outputs of a precompiled module.
	Precompiled struct {
		Module      string   `toml:"module"`
		OutputFiles []string `toml:"output_files"`
	}

	// Product is one file reported in a receipt.
	Product struct {
		Path string                 `toml:"path"`
		Type types.BuildProductType `toml:"type"`
	}

	// RuntimeDependency is one staged file reported in a receipt.
	RuntimeDependency struct {
		Path string                      `toml:"path"`
		Type types.RuntimeDependencyType `toml:"type"`
	}

	// Receipt records what a target build produced.
	Receipt struct {
		Target              string              `toml:"target"`
		Platform            string              `toml:"platform"`
		BuildProducts       []Product           `toml:"build_products"`
		RuntimeDependencies []RuntimeDependency `toml:"runtime_dependencies"`
	}

	// MissingManifestError is returned when a required manifest does not
	// exist.
	MissingManifestError struct {
		Path string
	}
)

// PrecompiledPath returns where the manifest of module is stored.
func PrecompiledPath(moduleIntermediateDir string, module types.ModuleName) string {
	return filepath.Join(moduleIntermediateDir, module.String()+".precompiled.toml")
}

// ReceiptPath returns where the receipt of target is stored.
func ReceiptPath(projectDir, platform, target string) string {
	return filepath.Join(projectDir, "Binaries", platform, target+".receipt.toml")
}

// ReadPrecompiled loads a precompiled manifest. A missing file is a
// *MissingManifestError.
func ReadPrecompiled(path string) (*Precompiled, error) {
	var m Precompiled
	if err := read(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WritePrecompiled stores m at path.
func WritePrecompiled(path string, m *Precompiled) error {
	return write(path, m)
}

// ReadReceipt loads a build receipt.
func ReadReceipt(path string) (*Receipt, error) {
	var r Receipt
	if err := read(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteReceipt sorts r's entries by path and stores it at path.
func WriteReceipt(path string, r *Receipt) error {
	r.Sort()
	return write(path, r)
}

// Sort orders products and runtime dependencies by path, then type.
func (r *Receipt) Sort() {
	slices.SortFunc(r.BuildProducts, func(a, b Product) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Type, b.Type))
	})
	slices.SortFunc(r.RuntimeDependencies, func(a, b RuntimeDependency) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Type, b.Type))
	})
}

func read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingManifestError{Path: path}
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// write replaces path atomically through a temporary file in the same
// directory.
func write(path string, v any) (err error) {
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Error implements the error interface.
func (e *MissingManifestError) Error() string {
	return fmt.Sprintf("manifest %s does not exist", e.Path)
}

// Unwrap returns ErrMissingManifest for errors.Is() compatibility.
func (e *MissingManifestError) Unwrap() error { return ErrMissingManifest }
