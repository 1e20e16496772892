package core

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// SourceResolver expands source patterns to a deterministic SourceSet.
//
// Patterns are slash-separated and relative to BaseDir. A single `*` stays
// within one directory and `**` crosses directories. A pattern without glob
// characters names one file directly.
//
// The result is strictly sorted by path, so directory listing order never
// reaches hashing or job order.
type SourceResolver struct {
	BaseDir string

	// Exclude patterns remove matches from the result.
	Exclude []string
}

// NewSourceResolver creates a resolver rooted at baseDir.
func NewSourceResolver(baseDir string, exclude ...string) *SourceResolver {
	return &SourceResolver{BaseDir: baseDir, Exclude: exclude}
}

// Resolve expands patterns and reads every matched file.
func (r *SourceResolver) Resolve(patterns []string) (*SourceSet, error) {
	if len(patterns) == 0 {
		return &SourceSet{Sources: []Source{}}, nil
	}

	exclude, err := compileAll(r.Exclude)
	if err != nil {
		return nil, err
	}

	pathSet := make(map[string]struct{})
	var globs []glob.Glob
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !containsGlobChar(pattern) {
			if _, err := os.Stat(r.osPath(pattern)); err != nil {
				return nil, fmt.Errorf("source %q: %w", pattern, err)
			}
			pathSet[cleanSlash(pattern)] = struct{}{}
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	if len(globs) > 0 {
		if err := r.walk(func(rel string) {
			for _, g := range globs {
				if g.Match(rel) {
					pathSet[rel] = struct{}{}
					return
				}
			}
		}); err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		if matchesAny(exclude, p) {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(r.osPath(p))
		if err != nil {
			return nil, fmt.Errorf("reading source %q: %w", p, err)
		}
		sources = append(sources, Source{Path: p, Content: content})
	}
	return &SourceSet{Sources: sources}, nil
}

// Match reports whether a path relative to BaseDir would be picked up by
// patterns. The watcher uses it to filter filesystem events.
func (r *SourceResolver) Match(patterns []string, rel string) (bool, error) {
	rel = cleanSlash(filepath.ToSlash(rel))
	exclude, err := compileAll(r.Exclude)
	if err != nil {
		return false, err
	}
	if matchesAny(exclude, rel) {
		return false, nil
	}
	include, err := compileAll(patterns)
	if err != nil {
		return false, err
	}
	return matchesAny(include, rel), nil
}

// walk visits every regular file under BaseDir, skipping hidden directories.
func (r *SourceResolver) walk(visit func(rel string)) error {
	root := r.BaseDir
	if root == "" {
		root = "."
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		visit(filepath.ToSlash(rel))
		return nil
	})
}

func (r *SourceResolver) osPath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.FromSlash(p)
	}
	return filepath.Join(r.BaseDir, filepath.FromSlash(p))
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, p string) bool {
	for _, g := range globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

func cleanSlash(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))), "./")
}

func containsGlobChar(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
