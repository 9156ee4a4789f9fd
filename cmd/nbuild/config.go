// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nbuild/nbuild/internal/config"
)

func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(
		newConfigShowCommand(app, flags),
		newConfigInitCommand(app, flags),
		newConfigPathCommand(app, flags),
	)
	return cmd
}

func newConfigShowCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	}
}

func newConfigInitCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var projectLocal bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file unless one exists",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir := ""
			if projectLocal {
				project, err := flags.project()
				if err != nil {
					return commandError(app.stderr, err, flags.verbose)
				}
				dir = filepath.Join(project, config.ProjectConfigDir)
			}
			path, written, err := config.CreateDefaultConfig(dir)
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			if written {
				fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created"), path)
			} else {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Exists"), path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&projectLocal, "project-local", false, "write into <project>/.nbuild instead of the user config directory")
	return cmd
}

func newConfigPathCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config files that are read, in order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			configFile, err := flags.configFile()
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			if configFile != "" {
				fmt.Fprintln(app.stdout, configFile)
				return nil
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			project, err := flags.project()
			if err != nil {
				return commandError(app.stderr, err, flags.verbose)
			}
			fmt.Fprintln(app.stdout, filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			fmt.Fprintln(app.stdout, config.ProjectConfigPath(project))
			return nil
		},
	}
}
