// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nbuild/nbuild/internal/issue"
	"github.com/nbuild/nbuild/internal/testutil"
)

// isolate points the user config directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, dir))
	cfgDir := filepath.Join(dir, "config")
	SetConfigDirOverride(cfgDir)
	t.Cleanup(Reset)
	return cfgDir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, files, err := loadWithOptions(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
	defaults := DefaultConfig()
	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaults.LogLevel)
	}
	if cfg.Watch.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", cfg.Watch.Debounce, DefaultDebounce)
	}
	if cfg.Toolchain.Compile != defaults.Toolchain.Compile {
		t.Error("compile template should default")
	}
	if len(cfg.RestrictedFolders) != 2 {
		t.Errorf("RestrictedFolders = %v", cfg.RestrictedFolders)
	}
}

func TestLoadLayering(t *testing.T) {
	cfgDir := isolate(t)
	project := t.TempDir()

	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `
workers: 4
log_level: "warn"
watch: debounce: "2s"
`)
	testutil.MustWriteFile(t, ProjectConfigPath(project), `
log_level: "debug"
restricted_folders: ["Confidential"]
toolchain: link_static: "lib /OUT:$NB_OUTPUT $@"
`)

	cfg, files, err := loadWithOptions(context.Background(), LoadOptions{ProjectDir: project})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want user and project", files)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4 from user file", cfg.Workers)
	}
	if cfg.LogLevel != LogLevelDebug {
		t.Errorf("LogLevel = %q, want project override", cfg.LogLevel)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
	if len(cfg.RestrictedFolders) != 1 || cfg.RestrictedFolders[0] != "Confidential" {
		t.Errorf("RestrictedFolders = %v", cfg.RestrictedFolders)
	}
	if cfg.Toolchain.LinkStatic != "lib /OUT:$NB_OUTPUT $@" {
		t.Errorf("LinkStatic = %q", cfg.Toolchain.LinkStatic)
	}
	if cfg.Toolchain.Compile != DefaultConfig().Toolchain.Compile {
		t.Error("unset template should keep its default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Cleanup(testutil.MustSetenv(t, "NBUILD_WORKERS", "7"))
	t.Cleanup(testutil.MustSetenv(t, "NBUILD_TOOLCHAIN_POST_BUILD", "true"))

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
	if cfg.Toolchain.PostBuild != "true" {
		t.Errorf("PostBuild = %q", cfg.Toolchain.PostBuild)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	cfgDir := isolate(t)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `workers: 3`)

	explicit := filepath.Join(t.TempDir(), "ci.cue")
	testutil.MustWriteFile(t, explicit, `precompile: true`)

	cfg, files, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: explicit})
	if err != nil {
		t.Fatalf("loadWithOptions() error: %v", err)
	}
	if len(files) != 1 || files[0] != explicit {
		t.Errorf("files = %v", files)
	}
	if !cfg.Precompile {
		t.Error("Precompile should be read from explicit file")
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, user file should be ignored", cfg.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	cfgDir := isolate(t)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(cfgDir, "nope.cue")})
		var ae *issue.ActionableError
		if !errors.As(err, &ae) {
			t.Fatalf("error = %v, want ActionableError", err)
		}
		if ae.Operation != "load configuration" {
			t.Errorf("Operation = %q", ae.Operation)
		}
	})

	t.Run("schema violation", func(t *testing.T) {
		testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `workers: -1`)
		t.Cleanup(func() { _ = os.Remove(filepath.Join(cfgDir, "config.cue")) })

		_, err := Load(context.Background(), LoadOptions{})
		if err == nil {
			t.Fatal("expected schema error")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `jobs: 2`)
		t.Cleanup(func() { _ = os.Remove(filepath.Join(cfgDir, "config.cue")) })

		if _, err := Load(context.Background(), LoadOptions{}); err == nil {
			t.Fatal("closed #Config should reject unknown fields")
		}
	})

	t.Run("invalid platform", func(t *testing.T) {
		testutil.MustWriteFile(t, filepath.Join(cfgDir, "config.cue"), `platform: "amiga"`)
		t.Cleanup(func() { _ = os.Remove(filepath.Join(cfgDir, "config.cue")) })

		_, err := Load(context.Background(), LoadOptions{})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestCreateDefaultConfigRoundTrip(t *testing.T) {
	cfgDir := isolate(t)

	path, written, err := CreateDefaultConfig("")
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if !written || path != filepath.Join(cfgDir, "config.cue") {
		t.Fatalf("path = %q, written = %v", path, written)
	}
	if _, written, _ = CreateDefaultConfig(""); written {
		t.Error("existing file should not be overwritten")
	}

	content := testutil.MustReadFile(t, path)
	if !strings.Contains(content, `log_level: "info"`) {
		t.Errorf("generated file missing log_level:\n%s", content)
	}

	cfg, err := Load(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.Toolchain.Compile != defaults.Toolchain.Compile {
		t.Errorf("compile template did not round-trip:\n%q\n%q", cfg.Toolchain.Compile, defaults.Toolchain.Compile)
	}
	if cfg.Watch.Debounce != defaults.Watch.Debounce {
		t.Errorf("Debounce = %v", cfg.Watch.Debounce)
	}
}
