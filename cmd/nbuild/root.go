// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the nbuild command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "nbuild",
		Short: "Build native targets from module descriptors",
		Long: TitleStyle.Render("nbuild") + SubtitleStyle.Render(" - a native build orchestrator") + `

nbuild reads nbtarget.cue in the project directory, discovers every
nbmodule.cue under the module roots, decides which binary each module is
linked into and plans compile, link and staging actions.

` + SubtitleStyle.Render("Examples:") + `
  nbuild build                 Build the target in the current directory
  nbuild build --plan          Print the planned actions without running them
  nbuild deps --why Util       Show why a module is linked
  nbuild describe Demo --json  Describe one binary
  nbuild watch                 Rebuild on every change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (replaces the user and project config files)")
	rootCmd.PersistentFlags().StringVarP(&flags.projectDir, "project", "p", "", "project directory containing nbtarget.cue (default is the working directory)")

	rootCmd.AddCommand(
		newBuildCommand(app, flags),
		newDepsCommand(app, flags),
		newDescribeCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// addTargetFlags registers the flags that change how the target is set up.
func addTargetFlags(cmd *cobra.Command, tf *targetFlagValues) {
	cmd.Flags().StringVar(&tf.platform, "platform", "", "target platform: win64, linux or mac (default from config, else host)")
	cmd.Flags().StringVar(&tf.hotReload, "hot-reload", "", "append -<suffix> to every output file name")
	cmd.Flags().BoolVar(&tf.usePrecompiled, "use-precompiled", false, "skip binaries whose modules are all precompiled")
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the classified code on failure.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
