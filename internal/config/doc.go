// SPDX-License-Identifier: MPL-2.0

// Package config loads nbuild settings with Viper using CUE as the file
// format.
//
// Settings are layered: built-in defaults, then the user file
// (config.cue in the OS config directory, e.g. ~/.config/nbuild on Linux),
// then the project file (.nbuild/config.cue), then NBUILD_* environment
// variables. An explicit --config file replaces both files. Files are
// validated against the embedded #Config schema (config_schema.cue).
package config
