// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/config"
	"github.com/nbuild/nbuild/internal/fsitem"
	"github.com/nbuild/nbuild/internal/logging"
	"github.com/nbuild/nbuild/internal/target"
	"github.com/nbuild/nbuild/internal/toolchain"
	"github.com/nbuild/nbuild/pkg/types"
)

type (
	// App wires CLI services and shared dependencies.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags.
	rootFlagValues struct {
		verbose    bool
		configPath string
		projectDir string
	}

	// targetFlagValues override configuration for commands that load a target.
	targetFlagValues struct {
		platform       string
		hotReload      string
		usePrecompiled bool
	}

	// session is everything one invocation needs once the target is loaded.
	session struct {
		cfg    *config.Config
		logger *slog.Logger
		cache  *fsitem.Cache
		target *target.Target
	}
)

// NewApp creates an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// project returns the absolute project directory from the flags.
func (f *rootFlagValues) project() (string, error) {
	dir := types.FilesystemPath(f.projectDir)
	if f.projectDir == "" {
		dir = "."
	}
	if err := dir.Validate(); err != nil {
		return "", fmt.Errorf("--project: %w", err)
	}
	abs, err := dir.Abs()
	if err != nil {
		return "", fmt.Errorf("resolving project directory: %w", err)
	}
	return abs.String(), nil
}

// configFile returns the --config path, empty when the flag is unset.
func (f *rootFlagValues) configFile() (string, error) {
	if f.configPath == "" {
		return "", nil
	}
	p := types.FilesystemPath(f.configPath)
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("--config: %w", err)
	}
	return p.String(), nil
}

// loadConfig reads the configuration for the project named by the flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, string, error) {
	project, err := flags.project()
	if err != nil {
		return nil, "", err
	}
	configFile, err := flags.configFile()
	if err != nil {
		return nil, "", err
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: configFile, ProjectDir: project})
	if err != nil {
		return nil, "", err
	}
	return cfg, project, nil
}

// logger builds the logger for cfg; --verbose forces debug.
func (a *App) logger(cfg *config.Config, flags *rootFlagValues) (*slog.Logger, error) {
	level := string(cfg.LogLevel)
	if flags.verbose {
		level = string(config.LogLevelDebug)
	}
	return logging.New(a.stderr, logging.Options{Level: level, Prefix: "nbuild"})
}

// openSession loads configuration and the target. cache may be nil; watch
// passes the same cache across rebuilds.
func (a *App) openSession(ctx context.Context, flags *rootFlagValues, tf targetFlagValues, cache *fsitem.Cache) (*session, error) {
	cfg, project, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	if tf.platform != "" {
		cfg.Platform = config.PlatformName(tf.platform)
	}
	platform, err := cfg.TargetPlatform()
	if err != nil {
		return nil, err
	}
	logger, err := a.logger(cfg, flags)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	if cache == nil {
		cache = fsitem.NewCache(fsitem.WithLogger(logger))
	}

	t, err := target.Load(project, target.Options{
		Platform:        platform,
		Cache:           cache,
		HotReloadSuffix: tf.hotReload,
		UsePrecompiled:  tf.usePrecompiled || cfg.UsePrecompiled,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, cache: cache, target: t}, nil
}

// toolchain returns a shell toolchain planning into a fresh graph.
func (s *session) toolchain() (*toolchain.ShellToolchain, *action.Graph, error) {
	g := action.NewGraph()
	tc, err := toolchain.NewShell(toolchain.ShellOptions{
		Platform:        s.target.Platform,
		Commands:        s.cfg.Commands(),
		DebugExtensions: s.cfg.Toolchain.DebugExtensions,
		Cache:           s.cache,
		Graph:           g,
	})
	if err != nil {
		return nil, nil, err
	}
	return tc, g, nil
}
