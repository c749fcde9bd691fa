package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	c, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`root: src
output: gen/meta
include_dirs: [include, third_party]
defines:
  NDEBUG: ""
  VERSION: "3"
macros:
  EXPORT: [__reflect__, export]
exclude: ["tests/"]
jobs: 4
functions: annotated
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "src", c.Root)
	assert.Equal(t, "gen/meta", c.Output)
	assert.Equal(t, []string{"include", "third_party"}, c.IncludeDirs)
	assert.Equal(t, map[string]string{"NDEBUG": "", "VERSION": "3"}, c.Defines)
	assert.Equal(t, []string{"__reflect__", "export"}, c.Macros["EXPORT"])
	assert.Equal(t, []string{"tests/"}, c.Exclude)
	assert.Equal(t, 4, c.Jobs)
	assert.Equal(t, "annotated", c.Functions)
	assert.Equal(t, int64(DefaultMaxFileSize), c.MaxFileSize, "unset keys keep defaults")
	assert.Empty(t, c.Extensions)
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
}

func TestLoadUnknownKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ouput: x\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output", func(c *Config) { c.Output = "" }},
		{"negative jobs", func(c *Config) { c.Jobs = -1 }},
		{"negative size", func(c *Config) { c.MaxFileSize = -1 }},
		{"bad functions", func(c *Config) { c.Functions = "some" }},
		{"bad extension", func(c *Config) { c.Extensions = []string{"cpp"} }},
		{"empty macro", func(c *Config) { c.Macros = map[string][]string{"X": nil} }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}

	c := Default()
	assert.NoError(t, c.Validate())
}

func TestResolve(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "out")
	c := Default()
	c.Output = abs
	c.IncludeDirs = []string{"inc"}

	require.NoError(t, c.Resolve(base))
	assert.Equal(t, base, c.Root)
	assert.Equal(t, abs, c.Output)
	assert.Equal(t, []string{filepath.Join(base, "inc")}, c.IncludeDirs)
}
