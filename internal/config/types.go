// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nbuild/nbuild/internal/buildenv"
	"github.com/nbuild/nbuild/internal/toolchain"
)

const (
	// LogLevelDebug logs every planned action and cache decision.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs build progress.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only problems that do not stop the build.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// DefaultDebounce is the watch debounce window.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidPlatformName is returned when a PlatformName value is not recognized.
	ErrInvalidPlatformName = errors.New("invalid platform name")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidWorkerCount is returned when a WorkerCount is negative.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrInvalidIgnorePattern is returned when an IgnorePattern is not a valid glob.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")
	// ErrInvalidFolderName is returned when a restricted folder name is blank
	// or contains a path separator.
	ErrInvalidFolderName = errors.New("invalid folder name")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// PlatformName selects the target platform. The zero value means the
	// host platform.
	PlatformName string

	// InvalidPlatformNameError is returned when a PlatformName value is not recognized.
	// It wraps ErrInvalidPlatformName for errors.Is() compatibility.
	InvalidPlatformNameError struct {
		Value PlatformName
	}

	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// WorkerCount bounds parallel link composition and action execution.
	// Zero means GOMAXPROCS.
	WorkerCount int

	// InvalidWorkerCountError is returned when a WorkerCount is negative.
	InvalidWorkerCountError struct {
		Value WorkerCount
	}

	// IgnorePattern is a doublestar glob relative to the project directory.
	IgnorePattern string

	// InvalidIgnorePatternError is returned when an IgnorePattern does not parse.
	InvalidIgnorePatternError struct {
		Value IgnorePattern
	}

	// FolderName is a single restricted folder name such as "NoRedist".
	FolderName string

	// InvalidFolderNameError is returned when a FolderName is blank or nested.
	InvalidFolderNameError struct {
		Value FolderName
	}

	// InvalidWatchConfigError collects WatchConfig field errors.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects Config field errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Platform is the target platform; empty builds for the host.
		Platform PlatformName `json:"platform" mapstructure:"platform"`
		// Workers bounds parallel work
		Workers WorkerCount `json:"workers" mapstructure:"workers"`
		// LogLevel sets the minimum log level
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// RestrictedFolders are folder names whose contents must not leak into
		// binaries outside a folder of the same name.
		RestrictedFolders []FolderName `json:"restricted_folders" mapstructure:"restricted_folders"`
		// CreateDebugInfo reports symbol files as build products
		CreateDebugInfo bool `json:"create_debug_info" mapstructure:"create_debug_info"`
		// DisableLinking stops after compilation
		DisableLinking bool `json:"disable_linking" mapstructure:"disable_linking"`
		// Precompile writes precompiled manifests for every module
		Precompile bool `json:"precompile" mapstructure:"precompile"`
		// UsePrecompiled skips binaries whose modules are all precompiled
		UsePrecompiled bool `json:"use_precompiled" mapstructure:"use_precompiled"`
		// Toolchain holds the shell command templates
		Toolchain ToolchainConfig `json:"toolchain" mapstructure:"toolchain"`
		// Watch configures `nbuild watch`
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// ToolchainConfig holds the shell templates run for each build step.
	ToolchainConfig struct {
		Compile        string `json:"compile" mapstructure:"compile"`
		LinkExecutable string `json:"link_executable" mapstructure:"link_executable"`
		LinkDynamic    string `json:"link_dynamic" mapstructure:"link_dynamic"`
		LinkStatic     string `json:"link_static" mapstructure:"link_static"`
		ImportLibrary  string `json:"import_library" mapstructure:"import_library"`
		PostBuild      string `json:"post_build" mapstructure:"post_build"`
		// DebugExtensions override the platform's symbol file extensions.
		DebugExtensions []string `json:"debug_extensions" mapstructure:"debug_extensions"`
	}

	// WatchConfig configures rebuild-on-change.
	WatchConfig struct {
		// Debounce is how long to wait after the last change before rebuilding.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists globs whose changes never trigger a rebuild.
		Ignore []IgnorePattern `json:"ignore" mapstructure:"ignore"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cmds := toolchain.DefaultCommands()
	return &Config{
		Workers:           0,
		LogLevel:          LogLevelInfo,
		RestrictedFolders: []FolderName{"NoRedist", "NotForLicensees"},
		Toolchain: ToolchainConfig{
			Compile:        cmds.Compile,
			LinkExecutable: cmds.LinkExecutable,
			LinkDynamic:    cmds.LinkDynamic,
			LinkStatic:     cmds.LinkStatic,
			ImportLibrary:  cmds.ImportLibrary,
			PostBuild:      cmds.PostBuild,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []IgnorePattern{"Intermediate/**", "Binaries/**", ".nbuild/**"},
		},
	}
}

// TargetPlatform resolves the configured platform, falling back to the host.
func (c *Config) TargetPlatform() (buildenv.Platform, error) {
	return buildenv.PlatformByName(string(c.Platform))
}

// Commands converts the toolchain templates for toolchain.NewShell.
func (c *Config) Commands() toolchain.Commands {
	return toolchain.Commands{
		Compile:        c.Toolchain.Compile,
		LinkExecutable: c.Toolchain.LinkExecutable,
		LinkDynamic:    c.Toolchain.LinkDynamic,
		LinkStatic:     c.Toolchain.LinkStatic,
		ImportLibrary:  c.Toolchain.ImportLibrary,
		PostBuild:      c.Toolchain.PostBuild,
	}
}

// FolderNames returns RestrictedFolders as plain strings.
func (c *Config) FolderNames() []string {
	out := make([]string, len(c.RestrictedFolders))
	for i, f := range c.RestrictedFolders {
		out[i] = string(f)
	}
	return out
}

// IgnorePatterns returns Watch.Ignore as plain strings.
func (c WatchConfig) IgnorePatterns() []string {
	out := make([]string, len(c.Ignore))
	for i, p := range c.Ignore {
		out[i] = string(p)
	}
	return out
}

// String returns the string representation of the PlatformName.
func (p PlatformName) String() string { return string(p) }

// IsValid returns whether the PlatformName names a known platform.
// The zero value is valid.
func (p PlatformName) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if _, err := buildenv.PlatformByName(string(p)); err != nil {
		return false, []error{&InvalidPlatformNameError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPlatformNameError.
func (e *InvalidPlatformNameError) Error() string {
	return fmt.Sprintf("invalid platform %q (expected win64, linux or mac)", e.Value)
}

// Unwrap returns ErrInvalidPlatformName for errors.Is() compatibility.
func (e *InvalidPlatformNameError) Unwrap() error { return ErrInvalidPlatformName }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// IsValid returns whether the WorkerCount is non-negative.
func (w WorkerCount) IsValid() (bool, []error) {
	if w < 0 {
		return false, []error{&InvalidWorkerCountError{Value: w}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWorkerCountError.
func (e *InvalidWorkerCountError) Error() string {
	return fmt.Sprintf("invalid worker count %d: must be zero or positive", e.Value)
}

// Unwrap returns ErrInvalidWorkerCount for errors.Is() compatibility.
func (e *InvalidWorkerCountError) Unwrap() error { return ErrInvalidWorkerCount }

// String returns the string representation of the IgnorePattern.
func (p IgnorePattern) String() string { return string(p) }

// IsValid returns whether the IgnorePattern is a valid doublestar glob.
func (p IgnorePattern) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" || !doublestar.ValidatePattern(string(p)) {
		return false, []error{&InvalidIgnorePatternError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidIgnorePatternError.
func (e *InvalidIgnorePatternError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q", e.Value)
}

// Unwrap returns ErrInvalidIgnorePattern for errors.Is() compatibility.
func (e *InvalidIgnorePatternError) Unwrap() error { return ErrInvalidIgnorePattern }

// String returns the string representation of the FolderName.
func (f FolderName) String() string { return string(f) }

// IsValid returns whether the FolderName is a single non-blank path element.
func (f FolderName) IsValid() (bool, []error) {
	s := string(f)
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, `/\`) {
		return false, []error{&InvalidFolderNameError{Value: f}}
	}
	return true, nil
}

// Error implements the error interface for InvalidFolderNameError.
func (e *InvalidFolderNameError) Error() string {
	return fmt.Sprintf("invalid restricted folder %q: must be a single folder name", e.Value)
}

// Unwrap returns ErrInvalidFolderName for errors.Is() compatibility.
func (e *InvalidFolderNameError) Unwrap() error { return ErrInvalidFolderName }

// IsValid returns whether the WatchConfig has valid fields.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce %s must not be negative", c.Debounce))
	}
	for _, p := range c.Ignore {
		if valid, fieldErrs := p.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields.
// Toolchain templates are free-form and are checked when a step runs.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Platform.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Workers.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, f := range c.RestrictedFolders {
		if valid, fieldErrs := f.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
