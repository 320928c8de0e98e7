// Package config loads flowtrace settings.
//
// Settings live in the [tool.py-flow-trace] table of pyproject.toml:
//
//	[tool.py-flow-trace]
//	path = "src"
//	ignore = ["migrations", "tests"]
//	third_party_modules = ["requests"]
//
// Priority (highest to lowest):
//  1. Environment variables (FLOWTRACE_*)
//  2. pyproject.toml
//  3. Built-in defaults
//
// A missing pyproject.toml is not an error; defaults apply.
package config

import "runtime"

// Section is the pyproject.toml table holding flowtrace settings.
const Section = "tool.py-flow-trace"

// DefaultIgnore is always part of the ignore list; configured entries are appended.
var DefaultIgnore = []string{"__pycache__", ".git", ".venv", "venv", "env", "alembic"}

// Config represents the complete flowtrace configuration.
type Config struct {
	// Root directory to analyze; module paths are relative to it
	Path string `toml:"path" mapstructure:"path"`

	// Substrings matched against full paths during discovery, appended to DefaultIgnore
	Ignore []string `toml:"ignore" mapstructure:"ignore"`

	// Glob patterns matched against root-relative slash paths
	IgnoreGlobs []string `toml:"ignore_globs" mapstructure:"ignore_globs"`

	// Accepted for compatibility; resolution does not consult it
	ThirdPartyModules []string `toml:"third_party_modules" mapstructure:"third_party_modules"`

	Output     string `toml:"output" mapstructure:"output"`           // JSON artifact path
	HTMLOutput string `toml:"html_output" mapstructure:"html_output"` // Visualization path, empty disables
	SQLitePath string `toml:"sqlite_path" mapstructure:"sqlite_path"` // SQLite export path, empty disables

	Workers          int  `toml:"workers" mapstructure:"workers"` // 0 means runtime.NumCPU()
	KeepGoing        bool `toml:"keep_going" mapstructure:"keep_going"`
	RecordUnresolved bool `toml:"record_unresolved" mapstructure:"record_unresolved"`
	ResolveAliases   bool `toml:"resolve_aliases" mapstructure:"resolve_aliases"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Path:              ".",
		Ignore:            []string{},
		IgnoreGlobs:       []string{},
		ThirdPartyModules: []string{},
		Output:            "analysis_result.json",
		HTMLOutput:        "template.html",
		SQLitePath:        "",
		Workers:           0,
	}
}

// IgnoreList returns the built-in ignore substrings followed by configured ones.
func (c *Config) IgnoreList() []string {
	list := make([]string, 0, len(DefaultIgnore)+len(c.Ignore))
	list = append(list, DefaultIgnore...)
	return append(list, c.Ignore...)
}

// EffectiveWorkers resolves the worker count.
func (c *Config) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}
