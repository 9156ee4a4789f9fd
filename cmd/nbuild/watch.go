// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nbuild/nbuild/internal/watch"
)

func newWatchCommand(app *App, flags *rootFlagValues) *cobra.Command {
	bf := &buildFlagValues{}
	var skipInitial bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a source file changes",
		Long: `Build, then rebuild whenever a source file changes.

The project directory and the engine directory are watched. Paths matching
watch.ignore in the configuration are skipped, as are the Intermediate and
Binaries output folders. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commandError(app.stderr, runWatch(cmd.Context(), app, flags, bf, skipInitial), flags.verbose)
		},
	}
	addTargetFlags(cmd, &bf.targetFlagValues)
	cmd.Flags().BoolVar(&bf.debugInfo, "debug-info", false, "report symbol files as build products (default from config)")
	cmd.Flags().IntVarP(&bf.workers, "workers", "j", 0, "parallel workers (default from config, 0 is GOMAXPROCS)")
	cmd.Flags().BoolVar(&skipInitial, "no-initial-build", false, "wait for the first change before building")
	return cmd
}

func runWatch(ctx context.Context, app *App, flags *rootFlagValues, bf *buildFlagValues, skipInitial bool) error {
	s, err := app.openSession(ctx, flags, bf.targetFlagValues, nil)
	if err != nil {
		return err
	}

	roots := []string{s.target.ProjectDir}
	if s.target.EngineDir != "" {
		roots = append(roots, s.target.EngineDir)
	}
	cache := s.cache
	w, err := watch.New(watch.Options{
		Roots:    roots,
		Ignore:   s.cfg.Watch.IgnorePatterns(),
		Debounce: s.cfg.Watch.Debounce,
		Cache:    cache,
		Logger:   s.logger,
		Rebuild: func(ctx context.Context, _ []string) error {
			return runBuild(ctx, app, flags, bf, cache)
		},
	})
	if err != nil {
		return err
	}

	if !skipInitial {
		if err := runBuild(ctx, app, flags, bf, cache); err != nil {
			s.logger.Error("initial build failed", "error", err)
		}
	}
	s.logger.Info("watching for changes", "roots", w.Roots())
	return w.Run(ctx)
}
