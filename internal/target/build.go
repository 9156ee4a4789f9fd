// SPDX-License-Identifier: MPL-2.0

package target

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/binary"
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/manifest"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/internal/runtimedeps"
	"github.com/nbuild/nbuild/internal/toolchain"
)

type (
	// BuildOptions configure Build.
	BuildOptions struct {
		Toolchain toolchain.Toolchain
		// Graph receives the planned actions. It should be the graph the
		// toolchain plans into.
		Graph    *action.Graph
		Executor *action.Executor
		// Workers bounds how many binaries are composed at once; zero means
		// GOMAXPROCS.
		Workers int

		RestrictedFolders []string
		CreateDebugInfo   bool
		DisableLinking    bool
		ProjectFilesOnly  bool
		// Precompile writes a precompiled manifest for every module marked
		// precompile.
		Precompile bool
		// PlanOnly stops after planning; nothing runs and no receipt is
		// written.
		PlanOnly bool
	}

	// Result describes a finished build.
	Result struct {
		Receipt     *manifest.Receipt
		ReceiptPath string
		Summary     action.Summary
		// Actions is the number of planned actions.
		Actions int
	}

	// compileRecorder remembers what each module compiled to.
	compileRecorder struct {
		toolchain.Toolchain

		mu      sync.Mutex
		outputs map[*module.Module][]string
	}
)

// Build plans every binary, runs the plan and writes the receipt. Every
// failing binary is reported; none of them stops the others from being
// planned.
func (t *Target) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	if err := t.checkRestrictedFolders(opts.RestrictedFolders); err != nil {
		return nil, err
	}

	rec := &compileRecorder{Toolchain: opts.Toolchain, outputs: make(map[*module.Module][]string)}
	bc := &binary.BuildContext{
		Toolchain:        rec,
		Binaries:         t.Binaries,
		Cache:            t.cache,
		GlobalCompile:    t.GlobalCompile,
		GlobalLink:       t.GlobalLink,
		ProjectFilesOnly: opts.ProjectFilesOnly,
		DisableLinking:   opts.DisableLinking,
		Logger:           t.logger,
	}
	if err := t.compose(ctx, bc, opts.Workers); err != nil {
		return nil, err
	}

	collector := runtimedeps.NewCollector(t.cache, t.logger)
	if !opts.ProjectFilesOnly {
		if err := t.stageRuntimeDependencies(collector, opts.Graph); err != nil {
			return nil, err
		}
	}

	result := &Result{Actions: opts.Graph.Len()}
	if opts.PlanOnly {
		return result, nil
	}

	summary, err := opts.Executor.Run(ctx, opts.Graph)
	result.Summary = summary
	if err != nil {
		return result, err
	}
	t.logger.Info("build finished", "target", t.Name, "ran", summary.Ran, "skipped", summary.Skipped)

	if opts.Precompile && !opts.ProjectFilesOnly {
		if err := rec.writeManifests(); err != nil {
			return result, err
		}
	}

	receipt, err := t.receipt(opts, collector)
	if err != nil {
		return result, err
	}
	result.Receipt = receipt
	result.ReceiptPath = manifest.ReceiptPath(t.ProjectDir, t.Platform.Name, t.Name)
	if err := manifest.WriteReceipt(result.ReceiptPath, receipt); err != nil {
		return result, fmt.Errorf("writing receipt: %w", err)
	}
	return result, nil
}

func (t *Target) checkRestrictedFolders(names []string) error {
	var errs []error
	for _, b := range t.Binaries.All() {
		if err := b.CheckRestrictedFolders(t.ProjectDir, t.EngineDir, names); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compose builds the link environments of all binaries concurrently and
// joins the errors of every binary that failed.
func (t *Target) compose(ctx context.Context, bc *binary.BuildContext, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	binaries := t.Binaries.All()
	errs := make([]error, len(binaries))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, b := range binaries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			if _, err := b.Build(bc); err != nil {
				errs[i] = fmt.Errorf("binary %s: %w", b.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (t *Target) stageRuntimeDependencies(c *runtimedeps.Collector, g *action.Graph) error {
	vars := runtimedeps.Variables{
		TargetOutputDir: t.OutputDirectory(),
		ProjectDir:      t.ProjectDir,
		EngineDir:       t.EngineDir,
	}
	var errs []error
	for _, b := range t.Binaries.All() {
		if err := b.PrepareRuntimeDependencies(c, vars); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	for _, cp := range c.Copies() {
		rel, err := filepath.Rel(t.ProjectDir, cp.Target)
		if err != nil {
			rel = cp.Target
		}
		err = g.Add(&action.Action{
			Kind:        action.KindCopy,
			Description: "Stage " + filepath.ToSlash(rel),
			Inputs:      []*fsitem.FileItem{t.cache.GetFile(cp.Source)},
			Outputs:     []*fsitem.FileItem{t.cache.GetFile(cp.Target)},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Target) receipt(opts BuildOptions, c *runtimedeps.Collector) (*manifest.Receipt, error) {
	var products binary.Products
	popts := binary.ProductOptions{
		CreateDebugInfo: opts.CreateDebugInfo,
		Precompile:      opts.Precompile,
		DisableLinking:  opts.DisableLinking || opts.ProjectFilesOnly,
	}
	for _, b := range t.Binaries.All() {
		if err := b.GetBuildProducts(opts.Toolchain, t.cache, &products, popts); err != nil {
			return nil, fmt.Errorf("binary %s: %w", b.Name, err)
		}
	}
	r := &manifest.Receipt{
		Target:        t.Name,
		Platform:      t.Platform.Name,
		BuildProducts: products.Items(),
	}
	for _, d := range c.Dependencies() {
		r.RuntimeDependencies = append(r.RuntimeDependencies, manifest.RuntimeDependency{Path: d.Path, Type: d.Type})
	}
	return r, nil
}

// BuildContext returns a context for composing a single binary outside of
// Build, as project-file export does.
func (t *Target) BuildContext(tc toolchain.Toolchain) *binary.BuildContext {
	return &binary.BuildContext{
		Toolchain:     tc,
		Binaries:      t.Binaries,
		Cache:         t.cache,
		GlobalCompile: t.GlobalCompile,
		GlobalLink:    t.GlobalLink,
		Logger:        t.logger,
	}
}

func (r *compileRecorder) Compile(m *module.Module, env *buildenv.CompileEnvironment) ([]*fsitem.FileItem, error) {
	files, err := r.Toolchain.Compile(m, env)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range files {
		r.outputs[m] = append(r.outputs[m], f.Path())
	}
	return files, nil
}

func (r *compileRecorder) writeManifests() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for m, outputs := range r.outputs {
		if !m.Precompile {
			continue
		}
		path := manifest.PrecompiledPath(m.IntermediateDirectory, m.Name)
		if err := manifest.WritePrecompiled(path, &manifest.Precompiled{Module: m.Name.String(), OutputFiles: outputs}); err != nil {
			errs = append(errs, fmt.Errorf("writing precompiled manifest of %s: %w", m.Name, err))
		}
	}
	return errors.Join(errs...)
}
