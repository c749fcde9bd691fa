// Package config loads the .cppmeta.yaml project file.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".cppmeta.yaml"

// DefaultMaxFileSize is the largest source file parsed by default.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.Base("invalid config")

// Config is the project configuration. CLI flags override its values.
//
// Root bounds the files whose declarations are emitted and Output receives
// the <rel>.h.meta files. Macros maps an annotation macro name to the
// annotation strings it expands to. Extensions restricts discovery; empty
// means header files. Functions is "all" or "annotated".
type Config struct {
	Root        string              `yaml:"root"`
	Output      string              `yaml:"output"`
	IncludeDirs []string            `yaml:"include_dirs"`
	Defines     map[string]string   `yaml:"defines"`
	Macros      map[string][]string `yaml:"macros"`
	Extensions  []string            `yaml:"extensions"`
	Exclude     []string            `yaml:"exclude"`
	Jobs        int                 `yaml:"jobs"`
	MaxFileSize int64               `yaml:"max_file_size"`
	Functions   string              `yaml:"functions"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Root:        ".",
		Output:      "meta",
		MaxFileSize: DefaultMaxFileSize,
		Functions:   "all",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &c, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing config %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Errorf("config %q: %w", path, err)
	}
	return &c, nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.Errorf("%w: output must not be empty", ErrInvalid)
	}
	if c.Jobs < 0 {
		return errors.WithDetails(errors.Errorf("%w: jobs must not be negative", ErrInvalid), "jobs", c.Jobs)
	}
	if c.MaxFileSize < 0 {
		return errors.WithDetails(errors.Errorf("%w: max_file_size must not be negative", ErrInvalid), "max_file_size", c.MaxFileSize)
	}
	if !slices.Contains([]string{"", "all", "annotated"}, c.Functions) {
		return errors.WithDetails(errors.Errorf("%w: functions must be \"all\" or \"annotated\"", ErrInvalid), "functions", c.Functions)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.Errorf("%w: extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	for name, values := range c.Macros {
		if len(values) == 0 {
			return errors.Errorf("%w: macro %q has no annotations", ErrInvalid, name)
		}
	}
	return nil
}

// Resolve makes Root, Output and IncludeDirs absolute against baseDir.
func (c *Config) Resolve(baseDir string) error {
	abs := func(p string) (string, error) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return filepath.Abs(p)
	}

	var err error
	if c.Root, err = abs(c.Root); err != nil {
		return errors.Errorf("resolving root: %w", err)
	}
	if c.Output, err = abs(c.Output); err != nil {
		return errors.Errorf("resolving output: %w", err)
	}
	for i, dir := range c.IncludeDirs {
		if c.IncludeDirs[i], err = abs(dir); err != nil {
			return errors.Errorf("resolving include dir %q: %w", dir, err)
		}
	}
	return nil
}
