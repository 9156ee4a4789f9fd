// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/logging"
	"github.com/nbuild/nbuild/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) rebuild(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}
}

func start(t *testing.T, opts Options) (cancel func()) {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	w, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return func() {
		stop()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error: %v", err)
		}
	}
}

func TestWatcherCoalescesAndInvalidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "Source", "Core")
	testutil.MustMkdirAll(t, src)
	a := filepath.Join(src, "a.c")
	testutil.MustWriteFile(t, a, "x")

	cache := fsitem.NewCache()
	if got := cache.GetFile(a).Length(); got != 1 {
		t.Fatalf("initial length = %d", got)
	}

	rec := newRecorder()
	stop := start(t, Options{Roots: []string{dir}, Debounce: 100 * time.Millisecond, Cache: cache, Rebuild: rec.rebuild})

	testutil.MustWriteFile(t, a, "xyz")
	testutil.MustWriteFile(t, filepath.Join(src, "b.c"), "y")
	rec.wait(t)
	stop()

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("rebuilds = %d, want 1: %v", len(calls), calls)
	}
	if !slices.Contains(calls[0], a) || !slices.Contains(calls[0], filepath.Join(src, "b.c")) {
		t.Errorf("changed = %v", calls[0])
	}
	if got := cache.GetFile(a).Length(); got != 3 {
		t.Errorf("cached length after change = %d, want 3", got)
	}
}

func TestWatcherIgnoresBuildOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustMkdirAll(t, filepath.Join(dir, "Binaries", "Linux"))
	testutil.MustMkdirAll(t, filepath.Join(dir, "Generated"))

	rec := newRecorder()
	stop := start(t, Options{
		Roots:    []string{dir},
		Ignore:   []string{"Generated/**"},
		Debounce: 50 * time.Millisecond,
		Rebuild:  rec.rebuild,
	})

	testutil.MustWriteFile(t, filepath.Join(dir, "Binaries", "Linux", "Demo"), "bin")
	testutil.MustWriteFile(t, filepath.Join(dir, "Generated", "x.h"), "")
	testutil.MustWriteFile(t, filepath.Join(dir, "notes.txt~"), "")
	time.Sleep(300 * time.Millisecond)

	testutil.MustWriteFile(t, filepath.Join(dir, "nbtarget.cue"), `name: "Demo"`)
	rec.wait(t)
	stop()

	calls := rec.snapshot()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0] != filepath.Join(dir, "nbtarget.cue") {
		t.Errorf("calls = %v, want only nbtarget.cue", calls)
	}
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	stop := start(t, Options{Roots: []string{dir}, Debounce: 50 * time.Millisecond, Rebuild: rec.rebuild})
	defer stop()

	newDir := filepath.Join(dir, "Source", "Net")
	testutil.MustMkdirAll(t, newDir)
	rec.wait(t)

	// Let the create event register the new directory before writing into it.
	time.Sleep(100 * time.Millisecond)
	file := filepath.Join(newDir, "net.c")
	testutil.MustWriteFile(t, file, "")

	deadline := time.After(5 * time.Second)
	for {
		for _, call := range rec.snapshot() {
			if slices.Contains(call, file) {
				return
			}
		}
		select {
		case <-rec.fired:
		case <-deadline:
			t.Fatalf("change in new directory never reported: %v", rec.snapshot())
		}
	}
}

func TestWatcherBusyRebuildKeepsChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls [][]string
	)
	done := make(chan struct{}, 4)
	rebuild := func(_ context.Context, changed []string) error {
		mu.Lock()
		calls = append(calls, changed)
		n := len(calls)
		mu.Unlock()
		if n == 1 {
			<-release
		}
		done <- struct{}{}
		return nil
	}
	stop := start(t, Options{Roots: []string{dir}, Debounce: 50 * time.Millisecond, Rebuild: rebuild})
	defer stop()

	first := filepath.Join(dir, "first.c")
	testutil.MustWriteFile(t, first, "1")
	time.Sleep(150 * time.Millisecond)

	second := filepath.Join(dir, "second.c")
	testutil.MustWriteFile(t, second, "2")
	time.Sleep(150 * time.Millisecond)
	close(release)

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for rebuilds")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(calls[1], second) {
		t.Errorf("second rebuild = %v, want it to include %s", calls[1], second)
	}
}

func TestWatcherRebuildErrorKeepsWatching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fired := make(chan struct{}, 4)
	stop := start(t, Options{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
		Rebuild: func(context.Context, []string) error {
			fired <- struct{}{}
			return errors.New("link failed")
		},
	})
	defer stop()

	for i := range 2 {
		testutil.MustWriteFile(t, filepath.Join(dir, "f.c"), string(rune('a'+i)))
		select {
		case <-fired:
		case <-time.After(5 * time.Second):
			t.Fatalf("rebuild %d never ran", i+1)
		}
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Error("New() without roots should fail")
	}
	_, err := New(Options{Roots: []string{t.TempDir()}, Ignore: []string{"[bad"}})
	if !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("error = %v, want ErrInvalidPattern", err)
	}
}

func TestRunTwice(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Options{Roots: []string{dir, dir}, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Roots()) != 1 {
		t.Errorf("Roots() = %v, duplicates should collapse", w.Roots())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

func TestIgnoredRelativeToEachRoot(t *testing.T) {
	t.Parallel()

	project, engine := t.TempDir(), t.TempDir()
	w, err := New(Options{Roots: []string{project, engine}, Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(project, "Source", "a.c"), false},
		{filepath.Join(engine, "Intermediate", "Build", "x.o"), true},
		{filepath.Join(project, "Binaries"), true},
		{filepath.Join(project, ".git", "HEAD"), true},
		{filepath.Join(os.TempDir(), "elsewhere.c"), true},
	}
	for _, tt := range tests {
		if got := w.ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if len(DefaultIgnores()) != len(defaultIgnores) {
		t.Error("DefaultIgnores() should copy the defaults")
	}
}
