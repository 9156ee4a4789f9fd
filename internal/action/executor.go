// SPDX-License-Identifier: MPL-2.0

package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/nbuild/nbuild/internal/fsitem"
)

type (
	// Executor runs the actions of a Graph.
	Executor struct {
		// Cache supplies timestamps and is refreshed for every output
		// written.
		Cache *fsitem.Cache
		// Workers bounds parallelism; zero means GOMAXPROCS.
		Workers int
		// Dir is the working directory of commands.
		Dir string
		// Environ is the base environment; nil means os.Environ().
		Environ []string
		// Stdout receives each action's combined output once it finishes.
		Stdout io.Writer
		Logger *slog.Logger

		outMu sync.Mutex
	}

	// Summary counts what a Run did.
	Summary struct {
		Ran     int
		Skipped int
	}

	// Error reports the action that failed.
	Error struct {
		Action   *Action
		ExitCode int
		Output   string
		Err      error
	}

	state struct {
		done chan struct{}
		ran  atomic.Bool
	}
)

// Run executes every action of g once its prerequisites finished. The
// first failure cancels the remaining actions.
func (e *Executor) Run(ctx context.Context, g *Graph) (Summary, error) {
	order, err := g.Order()
	if err != nil {
		return Summary{}, err
	}

	states := make(map[*Action]*state, len(order))
	for _, a := range order {
		states[a] = &state{done: make(chan struct{})}
	}

	var ran, skipped atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers())
	// Launching in topological order means the earliest unfinished action
	// always has its prerequisites done, so waiting workers cannot starve
	// it of a slot.
	for _, a := range order {
		st := states[a]
		prereqs := g.Prerequisites(a)
		eg.Go(func() error {
			defer close(st.done)
			anyRan := false
			for _, p := range prereqs {
				ps := states[p]
				select {
				case <-ps.done:
				case <-egCtx.Done():
					return egCtx.Err()
				}
				anyRan = anyRan || ps.ran.Load()
			}
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			if !anyRan && e.upToDate(a) {
				skipped.Add(1)
				e.logger().Debug("up to date", "action", a.Description)
				return nil
			}
			if err := e.execute(egCtx, a); err != nil {
				return err
			}
			st.ran.Store(true)
			ran.Add(1)
			return nil
		})
	}
	err = eg.Wait()
	return Summary{Ran: int(ran.Load()), Skipped: int(skipped.Load())}, err
}

// upToDate reports whether every output exists and none is older than an
// input. Actions without outputs always run.
func (e *Executor) upToDate(a *Action) bool {
	if len(a.Outputs) == 0 {
		return false
	}
	var oldest int64
	for i, out := range a.Outputs {
		if !out.Exists() {
			return false
		}
		if t := out.LastWriteTime().UnixNano(); i == 0 || t < oldest {
			oldest = t
		}
	}
	for _, in := range a.Inputs {
		if !in.Exists() || in.LastWriteTime().UnixNano() > oldest {
			return false
		}
	}
	return true
}

func (e *Executor) execute(ctx context.Context, a *Action) error {
	e.logger().Info(a.Description)
	for _, out := range a.Outputs {
		if err := os.MkdirAll(filepath.Dir(out.Path()), 0o755); err != nil {
			return &Error{Action: a, ExitCode: 1, Err: err}
		}
	}

	var output bytes.Buffer
	var err error
	if a.Kind == KindCopy {
		err = copyFiles(a)
	} else {
		err = e.runShell(ctx, a, &output)
	}
	e.refresh(a)
	e.flush(&output)

	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := 1
	var status interp.ExitStatus
	if errors.As(err, &status) {
		code = int(status)
	}
	return &Error{Action: a, ExitCode: code, Output: output.String(), Err: err}
}

func (e *Executor) runShell(ctx context.Context, a *Action, output *bytes.Buffer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(a.Command), a.Description)
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}
	environ := e.Environ
	if environ == nil {
		environ = os.Environ()
	}
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(append(append([]string(nil), environ...), a.EnvList()...)...)),
		interp.StdIO(nil, output, output),
	}
	if e.Dir != "" {
		opts = append(opts, interp.Dir(e.Dir))
	}
	// "--" keeps arguments such as "-o" from being read as shell options.
	opts = append(opts, interp.Params(append([]string{"--"}, a.Args...)...))

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}
	return runner.Run(ctx, prog)
}

func copyFiles(a *Action) error {
	if len(a.Inputs) != len(a.Outputs) {
		return fmt.Errorf("copy action has %d inputs and %d outputs", len(a.Inputs), len(a.Outputs))
	}
	for i, in := range a.Inputs {
		if err := copyFile(in.Path(), a.Outputs[i].Path()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func (e *Executor) refresh(a *Action) {
	for _, out := range a.Outputs {
		if e.Cache != nil {
			e.Cache.Invalidate(out.Path())
		} else {
			out.Refresh()
		}
	}
}

func (e *Executor) flush(output *bytes.Buffer) {
	if e.Stdout == nil || output.Len() == 0 {
		return
	}
	e.outMu.Lock()
	defer e.outMu.Unlock()
	_, _ = e.Stdout.Write(output.Bytes())
}

func (e *Executor) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (exit code %d): %v", e.Action.Description, e.ExitCode, e.Err)
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error { return e.Err }
