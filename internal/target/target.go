// SPDX-License-Identifier: MPL-2.0

package target

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nbuild/nbuild/internal/binary"
	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/depgraph"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/pkg/types"
)

const (
	gameDefinition = "NB_GAME=1"

	binariesDirName     = "Binaries"
	intermediateDirName = "Intermediate"
)

// ErrUnknownModule is returned when a binary names a module that was not
// discovered.
var ErrUnknownModule = errors.New("unknown module")

type (
	// Options configure target setup.
	Options struct {
		Platform buildenv.Platform
		Cache    *fsitem.Cache
		// HotReloadSuffix renames outputs to <Name>-<suffix><ext>.
		HotReloadSuffix string
		// UsePrecompiled treats binaries whose modules all have precompile
		// set as already built.
		UsePrecompiled bool
		Logger         *slog.Logger
	}

	// Target is a configured project: its modules, its binaries and the
	// environments they are built with.
	Target struct {
		Name       string
		Type       Type
		ProjectDir string
		// EngineDir is empty when the project has no engine modules.
		EngineDir  string
		Platform   buildenv.Platform
		Descriptor *Descriptor

		Modules  *module.Table
		Binaries *binary.Set

		GlobalCompile *buildenv.CompileEnvironment
		GlobalLink    *buildenv.LinkEnvironment

		cache  *fsitem.Cache
		logger *slog.Logger
	}

	// UnknownModuleError is returned when a binary declaration names a module
	// that does not exist.
	UnknownModuleError struct {
		Binary string
		Module string
	}
)

// Load reads the descriptor in projectDir, discovers and links the modules
// under its roots and sets up the binaries.
func Load(projectDir string, opts Options) (*Target, error) {
	if opts.Cache == nil {
		opts.Cache = fsitem.NewCache()
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, err
	}
	desc, err := LoadDescriptor(filepath.Join(projectDir, DescriptorFileName))
	if err != nil {
		return nil, err
	}

	var roots []string
	for _, r := range desc.ModuleRoots {
		roots = append(roots, resolve(projectDir, r))
	}
	if desc.EngineDir != "" {
		engine := resolve(projectDir, desc.EngineDir)
		if !covered(opts.Cache, engine, roots) {
			roots = append(roots, engine)
		}
	}

	var (
		entries []module.Entry
		errs    []error
	)
	for _, path := range module.Discover(opts.Cache, roots...) {
		d, err := module.LoadDescriptor(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, module.Entry{Path: path, Descriptor: d})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	table, err := module.BuildTable(opts.Cache, entries)
	if err != nil {
		return nil, err
	}
	return New(desc, projectDir, table, opts)
}

// New sets up the binaries of desc over an already linked module table.
func New(desc *Descriptor, projectDir string, table *module.Table, opts Options) (*Target, error) {
	if opts.Cache == nil {
		opts.Cache = fsitem.NewCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Target{
		Name:       desc.Name,
		Type:       desc.Type,
		ProjectDir: projectDir,
		Platform:   opts.Platform,
		Descriptor: desc,
		Modules:    table,
		Binaries:   binary.NewSet(),
		cache:      opts.Cache,
		logger:     logger,
	}
	if desc.EngineDir != "" {
		t.EngineDir = resolve(projectDir, desc.EngineDir)
	}
	t.setupGlobalEnvironments()

	if err := t.setupBinaries(opts); err != nil {
		return nil, fmt.Errorf("setting up target %s: %w", t.Name, err)
	}
	return t, nil
}

// OutputDirectory is where binaries and the receipt are written.
func (t *Target) OutputDirectory() string {
	return filepath.Join(t.ProjectDir, binariesDirName, t.Platform.Name)
}

// IntermediateDirectory is where object files of the target are written.
func (t *Target) IntermediateDirectory() string {
	return filepath.Join(t.ProjectDir, intermediateDirName, "Build", t.Platform.Name, t.Name)
}

// Cache returns the path cache the target was loaded through.
func (t *Target) Cache() *fsitem.Cache { return t.cache }

func (t *Target) setupGlobalEnvironments() {
	compile := &buildenv.CompileEnvironment{Platform: t.Platform}
	compile.AddDefinitions(t.Descriptor.Definitions...)
	link := &buildenv.LinkEnvironment{Platform: t.Platform}
	if t.Type == TypeGame {
		compile.AddDefinitions(gameDefinition)
		link.HasExports = false
	}
	if t.Platform.UsesResourceFiles {
		res := t.cache.GetFile(filepath.Join(t.ProjectDir, "Build", "Resources", binary.DefaultResourceName))
		if res.Exists() {
			link.DefaultResourceFiles = []*fsitem.FileItem{res}
		}
	}
	t.GlobalCompile = compile
	t.GlobalLink = link
}

func (t *Target) setupBinaries(opts Options) error {
	decls := t.Descriptor.Binaries
	if len(decls) == 0 {
		decls = []BinaryDescriptor{t.defaultBinary()}
	}

	var errs []error
	for _, d := range decls {
		if err := t.addDeclared(d, opts); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := t.bindReachableModules(opts); err != nil {
		return err
	}
	t.markCrossReferencedBinaries()

	if opts.UsePrecompiled {
		for _, b := range t.Binaries.All() {
			if allPrecompiled(b.Modules()) {
				b.UsePrecompiled = true
			}
		}
	}
	return nil
}

func (t *Target) defaultBinary() BinaryDescriptor {
	d := BinaryDescriptor{
		Name:                      t.Name,
		Type:                      types.BinaryExecutable,
		Modules:                   []string{t.Descriptor.LaunchModule},
		BuildAdditionalConsoleApp: t.Descriptor.BuildAdditionalConsoleApp,
	}
	if t.Type == TypeGame {
		d.AllowExports = !t.Descriptor.Monolithic
		d.CreateImportLibrarySeparately = !t.Descriptor.Monolithic
	}
	return d
}

func (t *Target) addDeclared(d BinaryDescriptor, opts Options) error {
	modules := make([]*module.Module, 0, len(d.Modules))
	for _, name := range d.Modules {
		m, ok := t.Modules.Find(types.ModuleName(name))
		if !ok {
			return &UnknownModuleError{Binary: d.Name, Module: name}
		}
		modules = append(modules, m)
	}
	cfg := binary.Config{
		Name:                          types.BinaryName(d.Name),
		Type:                          d.Type,
		AllowExports:                  d.AllowExports,
		CreateImportLibrarySeparately: d.CreateImportLibrarySeparately,
		BuildAdditionalConsoleApp:     d.BuildAdditionalConsoleApp || (d.Type == types.BinaryExecutable && t.Descriptor.BuildAdditionalConsoleApp),
		UsePrecompiled:                d.Precompiled,
	}
	t.layout(&cfg, d.Architectures, opts.HotReloadSuffix)
	return t.addBinary(cfg, modules)
}

func (t *Target) addBinary(cfg binary.Config, modules []*module.Module) error {
	b, err := binary.New(cfg)
	if err != nil {
		return err
	}
	for _, m := range modules {
		if err := t.bind(b, m); err != nil {
			return err
		}
	}
	return t.Binaries.Add(b)
}

func (t *Target) bind(b *binary.Binary, m *module.Module) error {
	if err := m.BindBinary(b.Name); err != nil {
		return err
	}
	if m.IntermediateDirectory == "" {
		m.IntermediateDirectory = filepath.Join(b.IntermediateDirectory, m.Name.String())
	}
	b.AddModule(m)
	return nil
}

// bindReachableModules gives every module reachable from a binary a home.
// Modular targets get one DynamicLibrary per module; monolithic ones put
// everything into the first binary.
func (t *Target) bindReachableModules(opts Options) error {
	primary := t.Binaries.All()[0]
	walk := depgraph.Options{IncludeDynamicallyLoaded: true, ForceIncludeCircular: true}
	// Binaries added while iterating are visited too.
	for i := 0; i < t.Binaries.Len(); i++ {
		b := t.Binaries.All()[i]
		for _, m := range depgraph.BinaryModules(b.Modules(), walk) {
			if _, bound := m.Binary(); bound {
				continue
			}
			if t.Descriptor.Monolithic {
				if err := t.bind(primary, m); err != nil {
					return err
				}
				continue
			}
			cfg := binary.Config{
				Name:         types.BinaryName(t.Name + "-" + m.Name.String()),
				Type:         types.BinaryDynamicLibrary,
				AllowExports: true,
			}
			t.layout(&cfg, nil, opts.HotReloadSuffix)
			if err := t.addBinary(cfg, []*module.Module{m}); err != nil {
				return err
			}
			t.logger.Debug("created module binary", "binary", cfg.Name, "module", m.Name)
		}
	}
	return nil
}

// markCrossReferencedBinaries marks binaries owning a module whose
// circular-allowed dependency lives in another binary.
func (t *Target) markCrossReferencedBinaries() {
	for _, b := range t.Binaries.All() {
		for _, m := range b.Modules() {
			if !m.IsBoundTo(b.Name) {
				continue
			}
			for _, dep := range m.CircularDependencies() {
				if home, ok := dep.Binary(); ok && home != b.Name {
					b.CreateImportLibrarySeparately = true
				}
			}
		}
	}
}

func (t *Target) layout(cfg *binary.Config, archs []string, hotReloadSuffix string) {
	ext := t.Platform.OutputExtension(cfg.Type)
	dir := t.OutputDirectory()
	stems := []string{cfg.Name.String()}
	if len(archs) > 1 {
		stems = stems[:0]
		for _, a := range archs {
			stems = append(stems, cfg.Name.String()+"-"+a)
		}
	}
	for _, stem := range stems {
		if hotReloadSuffix != "" {
			cfg.OriginalOutputFilePaths = append(cfg.OriginalOutputFilePaths, filepath.Join(dir, stem+ext))
			stem += "-" + hotReloadSuffix
		}
		cfg.OutputFilePaths = append(cfg.OutputFilePaths, filepath.Join(dir, stem+ext))
	}
	cfg.IntermediateDirectory = filepath.Join(t.IntermediateDirectory(), cfg.Name.String())
}

func allPrecompiled(modules []*module.Module) bool {
	for _, m := range modules {
		if !m.Precompile {
			return false
		}
	}
	return len(modules) > 0
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func covered(cache *fsitem.Cache, dir string, roots []string) bool {
	for _, r := range roots {
		if cache.IsUnder(dir, r) {
			return true
		}
	}
	return false
}

// Error implements the error interface.
func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("binary %s names %s module %q", e.Binary, ErrUnknownModule, e.Module)
}

// Unwrap returns ErrUnknownModule for errors.Is() compatibility.
func (e *UnknownModuleError) Unwrap() error { return ErrUnknownModule }
