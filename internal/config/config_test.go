package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - IgnoreList() appends configured entries to built-in defaults
// - EffectiveWorkers() falls back to NumCPU
// - Load() uses defaults when no pyproject.toml exists
// - Load() reads [tool.py-flow-trace] from pyproject.toml
// - Load() uses defaults when pyproject.toml has no flowtrace table
// - Environment variables override file values
// - Load() returns error for malformed TOML
// - NewFileLoader() requires the file to exist
// - Load() returns error for invalid configuration values
// - Validate() rejects empty path/output, negative workers, bad globs, blank ignores
// - Validate() returns multiple errors matchable with errors.Is

func writePyproject(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte(content), 0644))
}

func assertDefaults(t *testing.T, cfg *Config) {
	t.Helper()

	defaults := Default()
	assert.Equal(t, defaults.Path, cfg.Path)
	assert.Empty(t, cfg.Ignore)
	assert.Empty(t, cfg.IgnoreGlobs)
	assert.Equal(t, defaults.Output, cfg.Output)
	assert.Equal(t, defaults.HTMLOutput, cfg.HTMLOutput)
	assert.Equal(t, defaults.SQLitePath, cfg.SQLitePath)
	assert.Equal(t, defaults.Workers, cfg.Workers)
	assert.False(t, cfg.KeepGoing)
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, ".", cfg.Path)
	assert.Empty(t, cfg.Ignore)
	assert.Empty(t, cfg.ThirdPartyModules)
	assert.Equal(t, "analysis_result.json", cfg.Output)
	assert.Equal(t, "template.html", cfg.HTMLOutput)
	assert.Empty(t, cfg.SQLitePath)
	assert.False(t, cfg.KeepGoing)
	assert.False(t, cfg.RecordUnresolved)
	assert.False(t, cfg.ResolveAliases)

	assert.NoError(t, Validate(cfg))
}

func TestConfig_IgnoreList(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, DefaultIgnore, cfg.IgnoreList())

	cfg.Ignore = []string{"migrations", "tests"}
	assert.Equal(t,
		[]string{"__pycache__", ".git", ".venv", "venv", "env", "alembic", "migrations", "tests"},
		cfg.IgnoreList())

	// DefaultIgnore must not be modified through the returned slice
	list := cfg.IgnoreList()
	list[0] = "changed"
	assert.Equal(t, "__pycache__", DefaultIgnore[0])
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, runtime.NumCPU(), cfg.EffectiveWorkers())

	cfg.Workers = 3
	assert.Equal(t, 3, cfg.EffectiveWorkers())
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assertDefaults(t, cfg)
}

func TestLoad_FromPyproject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePyproject(t, dir, `
[project]
name = "demo"

[tool.py-flow-trace]
path = "src"
ignore = ["migrations", "tests"]
ignore_globs = ["**/generated/**"]
third_party_modules = ["requests"]
output = "out/graph.json"
workers = 4
keep_going = true
resolve_aliases = true
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Path)
	assert.Equal(t, []string{"migrations", "tests"}, cfg.Ignore)
	assert.Equal(t, []string{"**/generated/**"}, cfg.IgnoreGlobs)
	assert.Equal(t, []string{"requests"}, cfg.ThirdPartyModules)
	assert.Equal(t, "out/graph.json", cfg.Output)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.KeepGoing)
	assert.True(t, cfg.ResolveAliases)
	assert.False(t, cfg.RecordUnresolved)

	// Unset keys keep defaults
	assert.Equal(t, "template.html", cfg.HTMLOutput)
}

func TestLoad_PyprojectWithoutSection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePyproject(t, dir, "[tool.black]\nline-length = 100\n")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assertDefaults(t, cfg)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writePyproject(t, dir, "[tool.py-flow-trace]\npath = \"src\"\nworkers = 2\n")

	t.Setenv("FLOWTRACE_PATH", "lib")
	t.Setenv("FLOWTRACE_WORKERS", "8")
	t.Setenv("FLOWTRACE_RECORD_UNRESOLVED", "true")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "lib", cfg.Path)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.RecordUnresolved)
}

func TestLoad_MalformedTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePyproject(t, dir, "[tool.py-flow-trace\npath = \n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFileLoader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewFileLoader(filepath.Join(t.TempDir(), "custom.toml")).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileLoader_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tool.py-flow-trace]\noutput = \"x.json\"\n"), 0644))

	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "x.json", cfg.Output)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePyproject(t, dir, "[tool.py-flow-trace]\nworkers = -1\n")

	_, err := NewLoader(dir).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWorkers))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "empty path", modify: func(c *Config) { c.Path = " " }, wantErr: ErrEmptyPath},
		{name: "empty output", modify: func(c *Config) { c.Output = "" }, wantErr: ErrEmptyOutput},
		{name: "negative workers", modify: func(c *Config) { c.Workers = -2 }, wantErr: ErrInvalidWorkers},
		{name: "bad glob", modify: func(c *Config) { c.IgnoreGlobs = []string{"[unclosed"} }, wantErr: ErrInvalidGlob},
		{name: "blank ignore", modify: func(c *Config) { c.Ignore = []string{""} }, wantErr: ErrEmptyIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Path = ""
	cfg.Output = ""
	cfg.Workers = -1

	err := Validate(cfg)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "validation failed")
	assert.True(t, errors.Is(err, ErrEmptyPath))
	assert.True(t, errors.Is(err, ErrEmptyOutput))
	assert.True(t, errors.Is(err, ErrInvalidWorkers))
}
