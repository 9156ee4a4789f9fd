// SPDX-License-Identifier: MPL-2.0

package binary

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/manifest"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/internal/runtimedeps"
	"github.com/nbuild/nbuild/internal/toolchain"
	"github.com/nbuild/nbuild/pkg/types"
)

// timestampFileName is written by code generators and is not a product.
const timestampFileName = "Timestamp"

type (
	// Products is an insertion-ordered set of build products keyed by
	// path. The first type recorded for a path wins.
	Products struct {
		order []string
		kinds map[string]types.BuildProductType
	}

	// ProductOptions selects which products are reported.
	ProductOptions struct {
		CreateDebugInfo bool
		// Precompile reports the outputs of modules marked precompile.
		Precompile     bool
		DisableLinking bool
	}

	// ProjectFiles is what project-file generators need about a binary.
	ProjectFiles struct {
		Binary             types.BinaryName
		Type               types.BinaryType
		CompileEnvironment *buildenv.CompileEnvironment
		Modules            []ProjectModule
	}

	// ProjectModule is one owned module with its compile settings.
	ProjectModule struct {
		Name         types.ModuleName
		Directory    string
		Definitions  []string
		IncludePaths []string
	}

	exportedBinary struct {
		File    string   `json:"File"`
		Type    string   `json:"Type"`
		Modules []string `json:"Modules"`
	}
)

// Add records path as a product of kind unless it is already present.
func (p *Products) Add(path string, kind types.BuildProductType) {
	if p.kinds == nil {
		p.kinds = make(map[string]types.BuildProductType)
	}
	if _, ok := p.kinds[path]; ok {
		return
	}
	p.kinds[path] = kind
	p.order = append(p.order, path)
}

// Items returns the products in insertion order.
func (p *Products) Items() []manifest.Product {
	out := make([]manifest.Product, 0, len(p.order))
	for _, path := range p.order {
		out = append(out, manifest.Product{Path: path, Type: p.kinds[path]})
	}
	return out
}

// Len returns the number of products.
func (p *Products) Len() int { return len(p.order) }

// GetBuildProducts adds the files a build of b produces to products.
func (b *Binary) GetBuildProducts(tc toolchain.Toolchain, cache *fsitem.Cache, products *Products, opts ProductOptions) error {
	if opts.Precompile {
		for _, m := range b.modules {
			if !m.Precompile || !b.owns(m) {
				continue
			}
			if err := addPrecompiledProducts(cache, m, products); err != nil {
				return err
			}
		}
	}
	if opts.DisableLinking {
		return nil
	}

	platform := tc.Platform()
	kind := types.ProductTypeFor(b.Type)
	for _, out := range b.OutputFilePaths {
		addWithDebugFiles(products, out, kind, tc.DebugExtensions(), opts.CreateDebugInfo)
		if b.Type.IsDynamicLibrary() && b.AllowExports && platform.HasSeparateImportLibrary() {
			products.Add(platform.ImportLibraryPath(b.IntermediateDirectory, out), types.ProductBuildResource)
		}
	}
	if b.BuildAdditionalConsoleApp && b.Type == types.BinaryExecutable {
		for _, out := range b.OutputFilePaths {
			addWithDebugFiles(products, ConsoleAppPath(out), kind, tc.DebugExtensions(), opts.CreateDebugInfo)
		}
	}
	return nil
}

func addPrecompiledProducts(cache *fsitem.Cache, m *module.Module, products *Products) error {
	if gen := m.GeneratedCodeDirectory(); gen != "" {
		for _, f := range cache.GetDirectory(gen).EnumerateFiles() {
			if f.Name() != timestampFileName {
				products.Add(f.Path(), types.ProductBuildResource)
			}
		}
	}
	record, err := manifest.ReadPrecompiled(manifest.PrecompiledPath(m.IntermediateDirectory, m.Name))
	if err != nil {
		return fmt.Errorf("reading precompiled outputs of module %s: %w", m.Name, err)
	}
	for _, f := range record.OutputFiles {
		products.Add(f, types.ProductBuildResource)
	}
	return nil
}

func addWithDebugFiles(products *Products, path string, kind types.BuildProductType, debugExtensions []string, createDebugInfo bool) {
	products.Add(path, kind)
	if !createDebugInfo {
		return
	}
	for _, ext := range debugExtensions {
		products.Add(changeExtension(path, ext), types.ProductSymbolFile)
	}
}

func changeExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (b *Binary) owns(m *module.Module) bool {
	home, ok := m.Binary()
	return !ok || home == b.Name
}

// ExportJSON writes the output file, type and module names of b. It needs
// exactly one output path.
func (b *Binary) ExportJSON(w io.Writer) error {
	out, err := b.SingleOutput()
	if err != nil {
		return err
	}
	doc := exportedBinary{File: string(out), Type: b.Type.String(), Modules: make([]string, 0, len(b.modules))}
	for _, m := range b.modules {
		doc.Modules = append(doc.Modules, m.Name.String())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ProjectFileData returns the owned modules of b with the compile
// environment each of them is built with.
func (b *Binary) ProjectFileData(bc *BuildContext) ProjectFiles {
	global := bc.GlobalCompile
	if global == nil {
		global = &buildenv.CompileEnvironment{}
	}
	env := b.CreateBinaryCompileEnvironment(global)
	data := ProjectFiles{Binary: b.Name, Type: b.Type, CompileEnvironment: env}
	for _, m := range b.modules {
		if !b.owns(m) {
			continue
		}
		menv := b.moduleCompileEnvironment(bc, m, env)
		data.Modules = append(data.Modules, ProjectModule{
			Name:         m.Name,
			Directory:    m.Directory.Path(),
			Definitions:  menv.Definitions,
			IncludePaths: menv.IncludePaths,
		})
	}
	return data
}

// PrepareRuntimeDependencies resolves the runtime dependency rules of the
// modules b builds. BinaryOutputDir defaults to the directory of b's
// first output.
func (b *Binary) PrepareRuntimeDependencies(c *runtimedeps.Collector, vars runtimedeps.Variables) error {
	if vars.BinaryOutputDir == "" && len(b.OutputFilePaths) > 0 {
		vars.BinaryOutputDir = filepath.Dir(b.OutputFilePaths[0])
	}
	for _, m := range b.modules {
		if !b.owns(m) {
			continue
		}
		if err := c.AddModule(m, vars); err != nil {
			return fmt.Errorf("binary %s: %w", b.Name, err)
		}
	}
	return nil
}
