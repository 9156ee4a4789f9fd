// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/nbuild/nbuild/internal/issue"
	"github.com/nbuild/nbuild/pkg/cueutil"
	"github.com/nbuild/nbuild/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "nbuild"
	// EnvPrefix prefixes environment overrides, e.g. NBUILD_WORKERS.
	EnvPrefix = "NBUILD"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectConfigDir holds the per-project config file.
	ProjectConfigDir = ".nbuild"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the nbuild configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ProjectConfigPath returns the project-level config file path.
func ProjectConfigPath(projectDir string) string {
	return filepath.Join(projectDir, ProjectConfigDir, ConfigFileName+"."+ConfigFileExt)
}

// Load reads configuration with the given options.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

// loadWithOptions performs option-driven config loading and returns the
// files that contributed, in merge order.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, []string, error) {
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var files []string
	if opts.ConfigFilePath != "" {
		// An explicit file replaces both the user and project files.
		if !fileExists(opts.ConfigFilePath) {
			return nil, nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'nbuild config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		files = append(files, opts.ConfigFilePath)
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, nil, err
		}
		if userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(userPath) {
			files = append(files, userPath)
		}
		if opts.ProjectDir != "" {
			if projectPath := ProjectConfigPath(opts.ProjectDir); fileExists(projectPath) {
				files = append(files, projectPath)
			}
		}
	}

	for _, path := range files {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'nbuild config init' to write a commented default file").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		ctxErr := issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Run 'nbuild config show' to inspect the merged values")
		var fieldErrs []error
		for _, e := range errs {
			if invalid, ok := e.(*InvalidConfigError); ok {
				fieldErrs = append(fieldErrs, invalid.FieldErrors...)
			}
		}
		for _, fe := range fieldErrs {
			ctxErr = ctxErr.WithSuggestion(fe.Error())
		}
		return nil, nil, ctxErr.Wrap(errs[0]).BuildError()
	}

	return &cfg, files, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("platform", string(defaults.Platform))
	v.SetDefault("workers", int(defaults.Workers))
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("restricted_folders", defaults.FolderNames())
	v.SetDefault("create_debug_info", defaults.CreateDebugInfo)
	v.SetDefault("disable_linking", defaults.DisableLinking)
	v.SetDefault("precompile", defaults.Precompile)
	v.SetDefault("use_precompiled", defaults.UsePrecompiled)
	v.SetDefault("toolchain.compile", defaults.Toolchain.Compile)
	v.SetDefault("toolchain.link_executable", defaults.Toolchain.LinkExecutable)
	v.SetDefault("toolchain.link_dynamic", defaults.Toolchain.LinkDynamic)
	v.SetDefault("toolchain.link_static", defaults.Toolchain.LinkStatic)
	v.SetDefault("toolchain.import_library", defaults.Toolchain.ImportLibrary)
	v.SetDefault("toolchain.post_build", defaults.Toolchain.PostBuild)
	v.SetDefault("toolchain.debug_extensions", defaults.Toolchain.DebugExtensions)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.IgnorePatterns())
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config decodes to map[string]any rather than a struct so that Viper keeps
// defaults for the omitted fields and environment overrides still apply.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file into dir (the user config
// directory when dir is empty) unless one already exists. It returns the
// file path and whether it was written.
func CreateDefaultConfig(dir string) (string, bool, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// nbuild configuration file\n\n")

	if cfg.Platform != "" {
		fmt.Fprintf(&sb, "platform: %q\n", cfg.Platform)
	}
	fmt.Fprintf(&sb, "workers: %d\n", cfg.Workers)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("restricted_folders: [")
	for i, f := range cfg.RestrictedFolders {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", f)
	}
	sb.WriteString("]\n")

	fmt.Fprintf(&sb, "create_debug_info: %v\n", cfg.CreateDebugInfo)
	fmt.Fprintf(&sb, "disable_linking: %v\n", cfg.DisableLinking)
	fmt.Fprintf(&sb, "precompile: %v\n", cfg.Precompile)
	fmt.Fprintf(&sb, "use_precompiled: %v\n", cfg.UsePrecompiled)

	sb.WriteString("\n// Shell templates. See 'nbuild build --help' for the NB_* variables.\n")
	sb.WriteString("toolchain: {\n")
	writeTemplate(&sb, "compile", cfg.Toolchain.Compile)
	writeTemplate(&sb, "link_executable", cfg.Toolchain.LinkExecutable)
	writeTemplate(&sb, "link_dynamic", cfg.Toolchain.LinkDynamic)
	writeTemplate(&sb, "link_static", cfg.Toolchain.LinkStatic)
	writeTemplate(&sb, "import_library", cfg.Toolchain.ImportLibrary)
	writeTemplate(&sb, "post_build", cfg.Toolchain.PostBuild)
	if len(cfg.Toolchain.DebugExtensions) > 0 {
		sb.WriteString("\tdebug_extensions: [")
		for i, ext := range cfg.Toolchain.DebugExtensions {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", ext)
		}
		sb.WriteString("]\n")
	}
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("\tignore: [\n")
	for _, p := range cfg.Watch.Ignore {
		fmt.Fprintf(&sb, "\t\t%q,\n", p)
	}
	sb.WriteString("\t]\n")
	sb.WriteString("}\n")

	return sb.String()
}

// writeTemplate skips empty templates so the defaults keep applying.
func writeTemplate(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "\t%s: %q\n", key, value)
}
