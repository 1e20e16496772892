// Package config loads scriptgraph.toml or scriptgraph.yaml. Values left
// out of the file keep their defaults; command-line flags are applied on
// top by the caller.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are looked for, in order, when no file is named.
var DefaultFiles = []string{"scriptgraph.toml", "scriptgraph.yaml", "scriptgraph.yml"}

// ErrNotFound is returned by Find when no directory holds a config file.
var ErrNotFound = errors.New("no config file found")

// Config is the whole configuration of a build.
type Config struct {
	Sources []string `toml:"sources" yaml:"sources"`
	Exclude []string `toml:"exclude" yaml:"exclude"`

	OutputDir string `toml:"output_dir" yaml:"output_dir"`
	CacheDir  string `toml:"cache_dir" yaml:"cache_dir"`

	Parallelism int    `toml:"parallelism" yaml:"parallelism"`
	Format      string `toml:"format" yaml:"format"`
	DebugInfo   bool   `toml:"debug_info" yaml:"debug_info"`

	// CompilerVersion is a semver constraint the running compiler must
	// satisfy, for example ">= 3".
	CompilerVersion string `toml:"compiler_version" yaml:"compiler_version"`

	Exclusivity Exclusivity `toml:"exclusivity" yaml:"exclusivity"`
	Log         Log         `toml:"log" yaml:"log"`
	Print       Print       `toml:"print" yaml:"print"`
	Watch       Watch       `toml:"watch" yaml:"watch"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-" yaml:"-"`
}

// Exclusivity picks how a data input with several producers is treated.
// Rules are "branches" or "reject".
type Exclusivity struct {
	Default string            `toml:"default" yaml:"default"`
	Kinds   map[string]string `toml:"kinds" yaml:"kinds"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Print configures the print command.
type Print struct {
	Style string `toml:"style" yaml:"style"`
	Color bool   `toml:"color" yaml:"color"`
}

// Watch configures the watch command.
type Watch struct {
	Debounce string `toml:"debounce" yaml:"debounce"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		OutputDir:   "out",
		CacheDir:    ".scriptgraph/cache",
		Parallelism: 1,
		Format:      "json",
		Exclusivity: Exclusivity{Default: "branches"},
		Log:         Log{Level: "info", Format: "text"},
		Print:       Print{Style: "monokai", Color: true},
		Watch:       Watch{Debounce: "200ms"},
	}
}

type decoderFunc func(r io.Reader, v any) error

func decodeTOML(r io.Reader, v any) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func decodeYAML(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decoderFor(path string) (decoderFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return decodeTOML, nil
	case ".yaml", ".yml":
		return decodeYAML, nil
	}
	return nil, fmt.Errorf("config %s: unsupported extension, want .toml, .yaml or .yml", path)
}

// Load reads the file at path over the defaults and validates the result.
// Unknown keys are errors.
func Load(path string) (*Config, error) {
	dec, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	if err := dec(bufio.NewReader(f), c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, describe(err))
	}
	c.Path = path
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// describe adds the position and key of a go-toml error to its message.
func describe(err error) error {
	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		return errors.New(strings.TrimSpace(strict.String()))
	}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return fmt.Errorf("line %d column %d: %w", row, col, err)
	}
	return err
}

// Find looks for one of DefaultFiles in dir and then in each parent of dir.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range DefaultFiles {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Resolve loads path when set, and otherwise the nearest default file at or
// above dir. With neither it returns Default.
func Resolve(dir, path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	found, err := Find(dir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(found)
}

// BaseDir is the directory relative paths in c are resolved against: the
// directory of its file, or fallback when c was not read from a file.
func (c *Config) BaseDir(fallback string) string {
	if c.Path == "" {
		return fallback
	}
	return filepath.Dir(c.Path)
}
