// SPDX-License-Identifier: MPL-2.0

package runtimedeps

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"

	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/pkg/types"
)

// ErrConflict is the sentinel wrapped by ConflictError.
var ErrConflict = errors.New("conflicting runtime dependency sources")

type (
	// Dependency is a file that must exist next to a binary at run time.
	Dependency struct {
		Path string
		Type types.RuntimeDependencyType
	}

	// Copy stages Source at Target.
	Copy struct {
		Source string
		Target string
	}

	// Collector accumulates runtime dependencies across the modules of one
	// or more binaries. It is safe for concurrent use.
	Collector struct {
		cache  *fsitem.Cache
		logger *slog.Logger

		mu      sync.Mutex
		deps    []Dependency
		kinds   map[*fsitem.FileItem]types.RuntimeDependencyType
		sources map[*fsitem.FileItem]*fsitem.FileItem
		copies  []Copy
	}

	// ConflictError is returned when two different sources are mapped to
	// the same target.
	ConflictError struct {
		Target        string
		First, Second string
	}

	// TypeConflictError is returned when one target is staged with two
	// different types.
	TypeConflictError struct {
		Target        string
		First, Second types.RuntimeDependencyType
	}
)

// NewCollector creates a collector resolving wildcards through cache.
func NewCollector(cache *fsitem.Cache, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cache:   cache,
		logger:  logger,
		kinds:   make(map[*fsitem.FileItem]types.RuntimeDependencyType),
		sources: make(map[*fsitem.FileItem]*fsitem.FileItem),
	}
}

// AddModule resolves every rule of m. ModuleDir in vars is taken from m;
// relative rule paths are relative to the module directory.
func (c *Collector) AddModule(m *module.Module, vars Variables) error {
	vars.ModuleDir = m.Directory.Path()
	for _, rule := range m.RuntimeDependencies {
		if err := c.addRule(rule, vars); err != nil {
			return fmt.Errorf("creating runtime dependencies for module %s: %w", m.Name, err)
		}
	}
	return nil
}

func (c *Collector) addRule(rule module.RuntimeDependencyRule, vars Variables) error {
	target, err := expandPath(rule.Path, vars)
	if err != nil {
		return err
	}
	kind := rule.Type.OrDefault()

	if rule.Source == "" {
		if !hasWildcard(target) {
			return c.record(c.cache.GetFile(filepath.FromSlash(target)), kind)
		}
		p, err := parsePattern(target)
		if err != nil {
			return err
		}
		found := p.matches(c.cache)
		c.logger.Debug("resolved runtime dependency wildcard", "pattern", target, "matches", len(found))
		for _, m := range found {
			if err := c.record(m.file, kind); err != nil {
				return err
			}
		}
		return nil
	}

	source, err := expandPath(rule.Source, vars)
	if err != nil {
		return err
	}
	mapping, err := c.createMapping(source, target)
	if err != nil {
		return err
	}
	for _, pair := range mapping {
		if err := c.stage(pair[0], pair[1], kind); err != nil {
			return err
		}
	}
	return nil
}

// createMapping returns (source, target) pairs in source walk order.
func (c *Collector) createMapping(source, target string) ([][2]*fsitem.FileItem, error) {
	if !hasWildcard(source) && !hasWildcard(target) {
		return [][2]*fsitem.FileItem{{
			c.cache.GetFile(filepath.FromSlash(source)),
			c.cache.GetFile(filepath.FromSlash(target)),
		}}, nil
	}
	sp, err := parsePattern(source)
	if err != nil {
		return nil, err
	}
	tp, err := parsePattern(target)
	if err != nil {
		return nil, err
	}
	if !sp.compatible(tp) {
		return nil, &PatternMismatchError{Source: source, Target: target}
	}

	re := sp.regexp()
	var out [][2]*fsitem.FileItem
	for _, m := range sp.matches(c.cache) {
		captures := re.FindStringSubmatch(m.path)
		if captures == nil {
			continue
		}
		to := tp.fill(captures[1:])
		out = append(out, [2]*fsitem.FileItem{m.file, c.cache.GetFile(filepath.FromSlash(to))})
	}
	return out, nil
}

func (c *Collector) record(f *fsitem.FileItem, kind types.RuntimeDependencyType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordLocked(f, kind)
}

// recordLocked lists f once. Listing it again with another type fails.
func (c *Collector) recordLocked(f *fsitem.FileItem, kind types.RuntimeDependencyType) error {
	if prev, ok := c.kinds[f]; ok {
		if prev != kind {
			return &TypeConflictError{Target: f.Path(), First: prev, Second: kind}
		}
		return nil
	}
	c.kinds[f] = kind
	c.deps = append(c.deps, Dependency{Path: f.Path(), Type: kind})
	return nil
}

func (c *Collector) stage(source, target *fsitem.FileItem, kind types.RuntimeDependencyType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.sources[target]
	if ok {
		if existing != source {
			return &ConflictError{Target: target.Path(), First: existing.Path(), Second: source.Path()}
		}
		return c.recordLocked(target, kind)
	}
	if err := c.recordLocked(target, kind); err != nil {
		return err
	}
	c.sources[target] = source
	c.copies = append(c.copies, Copy{Source: source.Path(), Target: target.Path()})
	return nil
}

// Dependencies returns the staged files in the order they were resolved.
func (c *Collector) Dependencies() []Dependency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Dependency(nil), c.deps...)
}

// Copies returns the source to target copies required to stage mapped
// dependencies.
func (c *Collector) Copies() []Copy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Copy(nil), c.copies...)
}

// expandPath expands variables and returns a clean, absolute,
// slash-separated path. Relative paths are taken from $(ModuleDir).
func expandPath(p string, vars Variables) (string, error) {
	expanded, err := vars.Expand(p)
	if err != nil {
		return "", err
	}
	expanded = filepath.FromSlash(expanded)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(vars.ModuleDir, expanded)
	}
	return path.Clean(filepath.ToSlash(expanded)), nil
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("runtime dependency %q is configured to be staged from %q and %q", e.Target, e.First, e.Second)
}

// Unwrap returns ErrConflict for errors.Is() compatibility.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface.
func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("runtime dependency %q is staged as both %s and %s", e.Target, e.First, e.Second)
}

// Unwrap returns ErrConflict for errors.Is() compatibility.
func (e *TypeConflictError) Unwrap() error { return ErrConflict }
