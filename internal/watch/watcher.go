// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds a target when its sources change.
//
// A Watcher registers every non-ignored directory under its roots with
// fsnotify. Changes inside the debounce window are coalesced; when the window
// closes the changed paths are invalidated in the shared fsitem cache and the
// rebuild callback runs once with the whole set.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/nbuild/nbuild/internal/fsitem"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidPattern is returned by New for an ignore glob that does not parse.
	ErrInvalidPattern = errors.New("invalid ignore pattern")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultIgnores are matched relative to each root. Build outputs are
	// ignored so a rebuild never retriggers itself.
	defaultIgnores = []string{
		"**/.git/**",
		"Intermediate/**",
		"Binaries/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// RebuildFunc receives the absolute paths that changed.
	RebuildFunc func(ctx context.Context, changed []string) error

	// Options configure New.
	Options struct {
		// Roots are the directories to watch, typically the project
		// directory and the engine directory.
		Roots []string
		// Ignore are doublestar globs relative to a root, added to the
		// built-in ignores.
		Ignore []string
		// Debounce is the quiet period after the last event.
		Debounce time.Duration
		// Cache, when set, has every changed path invalidated before Rebuild.
		Cache *fsitem.Cache
		// Rebuild runs after each debounce window. Errors are logged and
		// watching continues.
		Rebuild RebuildFunc
		Logger  *slog.Logger
	}

	// Watcher monitors the roots and fires Rebuild.
	Watcher struct {
		opts     Options
		fsw      *fsnotify.Watcher
		roots    []string
		ignores  []string
		debounce time.Duration
		logger   *slog.Logger
		started  atomic.Bool
	}
)

// New validates the options and registers the directory trees.
func New(opts Options) (*Watcher, error) {
	if len(opts.Roots) == 0 {
		return nil, errors.New("watch: no roots")
	}
	for _, pat := range opts.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: %w %q", ErrInvalidPattern, pat)
		}
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, r := range opts.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", r, err)
		}
		if !slices.Contains(roots, abs) {
			roots = append(roots, abs)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		opts:     opts,
		fsw:      fsw,
		roots:    roots,
		ignores:  append(slices.Clone(defaultIgnores), opts.Ignore...),
		debounce: debounce,
		logger:   logger,
	}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes events until ctx is done. It returns nil on cancellation and
// an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		// A rebuild is still running: keep the pending set and try again
		// after another window.
		if !busy.CompareAndSwap(false, true) {
			mu.Lock()
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 {
			return
		}

		if w.opts.Cache != nil {
			for _, p := range changed {
				w.opts.Cache.Invalidate(p)
			}
		}
		w.logger.Info("change detected, rebuilding", "files", len(changed))
		if w.opts.Rebuild == nil {
			return
		}
		if err := w.opts.Rebuild(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("closing fsnotify watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if w.ignored(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.addIfDirectory(evt.Name)
			}
			w.logger.Debug("fs event", "op", evt.Op.String(), "path", evt.Name)

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatalWatchError(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// Roots returns the absolute watched roots.
func (w *Watcher) Roots() []string { return slices.Clone(w.roots) }

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", root, err)
	}
	return nil
}

func (w *Watcher) addIfDirectory(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watching new directory", "path", path, "error", err)
	}
}

// ignored matches path against the ignore globs relative to its root.
// Directories match "X/**" patterns through the trailing slash form.
func (w *Watcher) ignored(path string) bool {
	rel, ok := w.relative(path)
	if !ok {
		return true
	}
	for _, pat := range w.ignores {
		if match(pat, rel) || match(pat, rel+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) relative(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

func match(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}

// DefaultIgnores returns a copy of the built-in ignore globs.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
