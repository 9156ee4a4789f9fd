// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/target"
)

type buildFlagValues struct {
	targetFlagValues

	plan             bool
	precompile       bool
	disableLinking   bool
	projectFilesOnly bool
	debugInfo        bool
	workers          int
}

func newBuildCommand(app *App, flags *rootFlagValues) *cobra.Command {
	bf := &buildFlagValues{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Plan and run the build of the target",
		Long: `Plan and run the build of the target.

Every binary is composed in parallel. Compile and link steps run the shell
templates from the toolchain section of the configuration with these
variables set:

  NB_MODULE NB_SOURCE NB_OUTPUT NB_OUTPUTS NB_DEFINES NB_INCLUDES
  NB_LIBRARIES NB_IMPORT_LIB NB_CONSOLE NB_ENTRY_POINT NB_EXPORTS
  NB_EXECUTABLE

Link inputs are passed as positional parameters ("$@").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commandError(app.stderr, runBuild(cmd.Context(), app, flags, bf, nil), flags.verbose)
		},
	}
	addTargetFlags(cmd, &bf.targetFlagValues)
	cmd.Flags().BoolVar(&bf.plan, "plan", false, "print the planned actions without running them")
	cmd.Flags().BoolVar(&bf.precompile, "precompile", false, "write precompiled manifests (default from config)")
	cmd.Flags().BoolVar(&bf.disableLinking, "disable-linking", false, "compile only (default from config)")
	cmd.Flags().BoolVar(&bf.projectFilesOnly, "project-files-only", false, "set up environments without building")
	cmd.Flags().BoolVar(&bf.debugInfo, "debug-info", false, "report symbol files as build products (default from config)")
	cmd.Flags().IntVarP(&bf.workers, "workers", "j", 0, "parallel workers (default from config, 0 is GOMAXPROCS)")
	return cmd
}

// runBuild builds once. cache is reused when not nil.
func runBuild(ctx context.Context, app *App, flags *rootFlagValues, bf *buildFlagValues, cache *fsitem.Cache) error {
	s, err := app.openSession(ctx, flags, bf.targetFlagValues, cache)
	if err != nil {
		return err
	}
	tc, graph, err := s.toolchain()
	if err != nil {
		return err
	}

	workers := int(s.cfg.Workers)
	if bf.workers > 0 {
		workers = bf.workers
	}
	executor := &action.Executor{
		Cache:   s.cache,
		Workers: workers,
		Dir:     s.target.ProjectDir,
		Stdout:  app.stdout,
		Logger:  s.logger,
	}

	res, err := s.target.Build(ctx, target.BuildOptions{
		Toolchain:         tc,
		Graph:             graph,
		Executor:          executor,
		Workers:           workers,
		RestrictedFolders: s.cfg.FolderNames(),
		CreateDebugInfo:   bf.debugInfo || s.cfg.CreateDebugInfo,
		DisableLinking:    bf.disableLinking || s.cfg.DisableLinking,
		ProjectFilesOnly:  bf.projectFilesOnly,
		Precompile:        bf.precompile || s.cfg.Precompile,
		PlanOnly:          bf.plan,
	})
	if err != nil {
		return err
	}

	if bf.plan {
		return printPlan(app.stdout, s.target.ProjectDir, graph)
	}
	fmt.Fprintf(app.stdout, "%s %s (%s): %d ran, %d up to date\n",
		SuccessStyle.Render("Built"), NameStyle.Render(s.target.Name), s.target.Platform.Name,
		res.Summary.Ran, res.Summary.Skipped)
	if res.ReceiptPath != "" {
		fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Receipt:"), relativeTo(s.target.ProjectDir, res.ReceiptPath))
	}
	return nil
}

// printPlan lists the actions in execution order.
func printPlan(w io.Writer, projectDir string, g *action.Graph) error {
	order, err := g.Order()
	if err != nil {
		return err
	}
	for _, a := range order {
		outputs := ""
		if len(a.Outputs) > 0 {
			outputs = " -> " + relativeTo(projectDir, a.Outputs[0].Path())
			if n := len(a.Outputs) - 1; n > 0 {
				outputs += fmt.Sprintf(" (+%d)", n)
			}
		}
		fmt.Fprintf(w, "%-13s %s%s\n", a.Kind, a.Description, outputs)
	}
	fmt.Fprintf(w, "%d actions\n", len(order))
	return nil
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
