package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/build"
	"scriptgraph/internal/compile"
	"scriptgraph/internal/graph"
	"scriptgraph/internal/translate"
)

// Validate checks every value that is not checked by decoding.
func (c *Config) Validate() error {
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	switch translate.Format(c.Format) {
	case translate.FormatJSON, translate.FormatYAML:
	default:
		return fmt.Errorf("format must be json or yaml, got %q", c.Format)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.Watch.Interval(); err != nil {
		return err
	}
	return c.CheckCompiler(compile.Version)
}

// CheckCompiler reports whether compiler version v satisfies
// CompilerVersion.
func (c *Config) CheckCompiler(v int) error {
	if c.CompilerVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(c.CompilerVersion)
	if err != nil {
		return fmt.Errorf("compiler_version %q: %w", c.CompilerVersion, err)
	}
	have := semver.New(uint64(v), 0, 0, "", "")
	if !constraint.Check(have) {
		return fmt.Errorf("compiler version %s does not satisfy %q", have, c.CompilerVersion)
	}
	return nil
}

// Policy converts the exclusivity section.
func (c *Config) Policy() (acm.ExclusivityPolicy, error) {
	def, err := rule(c.Exclusivity.Default)
	if err != nil {
		return acm.ExclusivityPolicy{}, fmt.Errorf("exclusivity.default: %w", err)
	}
	p := acm.ExclusivityPolicy{Default: def}
	for kind, name := range c.Exclusivity.Kinds {
		k := graph.NodeKind(kind)
		if !k.Known() {
			return acm.ExclusivityPolicy{}, fmt.Errorf("exclusivity.kinds: unknown node kind %q", kind)
		}
		r, err := rule(name)
		if err != nil {
			return acm.ExclusivityPolicy{}, fmt.Errorf("exclusivity.kinds.%s: %w", kind, err)
		}
		if p.ByKind == nil {
			p.ByKind = map[graph.NodeKind]acm.ExclusivityRule{}
		}
		p.ByKind[k] = r
	}
	return p, nil
}

func rule(name string) (acm.ExclusivityRule, error) {
	switch strings.ToLower(name) {
	case "", "branches":
		return acm.ExclusiveBranches, nil
	case "reject":
		return acm.RejectMultiple, nil
	}
	return 0, fmt.Errorf("rule must be branches or reject, got %q", name)
}

// BuildOptions returns the compile options of a build.
func (c *Config) BuildOptions() (build.Options, error) {
	policy, err := c.Policy()
	if err != nil {
		return build.Options{}, err
	}
	return build.Options{
		Format:       translate.Format(c.Format),
		AddDebugInfo: c.DebugInfo,
		Exclusivity:  policy,
	}, nil
}

// Interval is the parsed debounce delay.
func (w Watch) Interval() (time.Duration, error) {
	if w.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("watch.debounce must not be negative, got %s", d)
	}
	return d, nil
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger returns a logger writing to w in the configured format.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
