package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ProjectFile is the file searched for in the working directory.
const ProjectFile = "pyproject.toml"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → pyproject.toml → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	configFile string
	required   bool // Explicit files must exist
}

// NewLoader creates a loader reading pyproject.toml from rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{
		configFile: filepath.Join(rootDir, ProjectFile),
	}
}

// NewFileLoader creates a loader for an explicit config file, which must exist.
func NewFileLoader(configFile string) Loader {
	return &loader{
		configFile: configFile,
		required:   true,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (FLOWTRACE_*)
// 2. [tool.py-flow-trace] in the config file
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	// Enable environment variable overrides (e.g., FLOWTRACE_KEEP_GOING)
	v.SetEnvPrefix("FLOWTRACE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.BindEnv("path")
	v.BindEnv("ignore")
	v.BindEnv("ignore_globs")
	v.BindEnv("third_party_modules")
	v.BindEnv("output")
	v.BindEnv("html_output")
	v.BindEnv("sqlite_path")
	v.BindEnv("workers")
	v.BindEnv("keep_going")
	v.BindEnv("record_unresolved")
	v.BindEnv("resolve_aliases")

	setDefaults(v)

	section, err := l.readSection()
	if err != nil {
		return nil, err
	}
	if section != nil {
		if err := v.MergeConfigMap(section); err != nil {
			return nil, fmt.Errorf("failed to merge config section: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// readSection returns the [tool.py-flow-trace] table, or nil when the file
// or the table is absent.
func (l *loader) readSection() (map[string]interface{}, error) {
	if _, err := os.Stat(l.configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && !l.required {
			return nil, nil // Defaults apply
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fv := viper.New()
	fv.SetConfigFile(l.configFile)
	fv.SetConfigType("toml")
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if !fv.IsSet(Section) {
		return nil, nil
	}
	return fv.GetStringMap(Section), nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("path", defaults.Path)
	v.SetDefault("ignore", defaults.Ignore)
	v.SetDefault("ignore_globs", defaults.IgnoreGlobs)
	v.SetDefault("third_party_modules", defaults.ThirdPartyModules)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("html_output", defaults.HTMLOutput)
	v.SetDefault("sqlite_path", defaults.SQLitePath)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("keep_going", defaults.KeepGoing)
	v.SetDefault("record_unresolved", defaults.RecordUnresolved)
	v.SetDefault("resolve_aliases", defaults.ResolveAliases)
}

// LoadConfig is a convenience function that loads pyproject.toml from the
// current working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}
