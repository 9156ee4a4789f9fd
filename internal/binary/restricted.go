// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nbuild/nbuild/internal/depgraph"
)

// ErrRestrictedFolder is the sentinel wrapped by RestrictedFolderError.
var ErrRestrictedFolder = errors.New("binary references a module in a restricted folder")

type (
	// RestrictedFolderError is returned when a binary outside a restricted
	// folder references a module inside one.
	RestrictedFolderError struct {
		Output string
		Folder string
		// Reference is the restricted directory the module lives in.
		Reference string
		// Chain leads from a module of the binary to the offending module.
		Chain string
	}

	folderRef struct {
		name string
		dir  string
	}
)

// CheckRestrictedFolders verifies that every module reachable from b lives
// only in restricted folders each of b's outputs is also in. Paths are compared
// below engineDir for outputs under it and below projectDir otherwise.
// Every violation is reported.
func (b *Binary) CheckRestrictedFolders(projectDir, engineDir string, names []string) error {
	if len(names) == 0 || len(b.OutputFilePaths) == 0 {
		return nil
	}
	forest := depgraph.FindModuleReferences(b.modules)
	var errs []error
	for _, output := range b.OutputFilePaths {
		outputDir := filepath.Dir(output)
		base, ok := baseDirectory(outputDir, projectDir, engineDir)
		if !ok {
			continue
		}
		allowed := make(map[string]bool)
		for _, ref := range restrictedFolders(base, outputDir, names) {
			allowed[strings.ToLower(ref.name)] = true
		}
		for _, m := range forest.Modules() {
			moduleBase, ok := baseDirectory(m.Directory.Path(), projectDir, engineDir)
			if !ok {
				continue
			}
			for _, ref := range restrictedFolders(moduleBase, m.Directory.Path(), names) {
				if allowed[strings.ToLower(ref.name)] {
					continue
				}
				errs = append(errs, &RestrictedFolderError{
					Output:    output,
					Folder:    ref.name,
					Reference: ref.dir,
					Chain:     depgraph.FormatChain(forest.Chain(m)),
				})
			}
		}
	}
	return errors.Join(errs...)
}

func baseDirectory(dir, projectDir, engineDir string) (string, bool) {
	if engineDir != "" && isUnder(dir, engineDir) {
		return engineDir, true
	}
	if projectDir != "" && isUnder(dir, projectDir) {
		return projectDir, true
	}
	return "", false
}

func isUnder(dir, root string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// restrictedFolders returns the components of dir below base that match
// one of names, case-insensitively, with the directory each one names.
func restrictedFolders(base, dir string, names []string) []folderRef {
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." {
		return nil
	}
	var refs []folderRef
	current := base
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		for _, name := range names {
			if strings.EqualFold(part, name) {
				refs = append(refs, folderRef{name: name, dir: current})
				break
			}
		}
	}
	return refs
}

// Error implements the error interface.
func (e *RestrictedFolderError) Error() string {
	return fmt.Sprintf("Output binary %q is not in a %s folder, but references %q via %s.", e.Output, e.Folder, e.Reference, e.Chain)
}

// Unwrap returns ErrRestrictedFolder for errors.Is() compatibility.
func (e *RestrictedFolderError) Unwrap() error { return ErrRestrictedFolder }
