package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// Restorer writes artifacts into the output directory, either freshly
// compiled or replayed from the cache.
type Restorer struct {
	OutputDir string
}

// NewRestorer creates a Restorer writing under outputDir.
func NewRestorer(outputDir string) *Restorer {
	return &Restorer{OutputDir: outputDir}
}

// Restore writes every artifact of entry whose file is missing or differs,
// and returns how many it wrote. Files already up to date are left alone so
// their modification time does not change.
func (r *Restorer) Restore(entry *CacheEntry) (int, error) {
	if r == nil {
		return 0, fmt.Errorf("restorer is nil")
	}
	if entry == nil {
		return 0, fmt.Errorf("cache entry is nil")
	}

	restored := 0
	for _, artifact := range entry.Artifacts {
		if artifact.Path == "" {
			return restored, fmt.Errorf("job %q: artifact path is empty", entry.Job)
		}
		if artifact.Content == nil {
			return restored, fmt.Errorf("job %q: artifact %q missing content in cache entry", entry.Job, artifact.Path)
		}

		target, err := r.targetPath(artifact.Path)
		if err != nil {
			return restored, fmt.Errorf("job %q: resolving artifact %q target path: %w", entry.Job, artifact.Path, err)
		}

		have, err := QuickHashFile(target)
		if err == nil && have == QuickHash(artifact.Content) {
			continue
		}
		if err != nil && !os.IsNotExist(err) {
			return restored, fmt.Errorf("job %q: hashing existing artifact %q: %w", entry.Job, artifact.Path, err)
		}

		if err := WriteFileAtomic(target, artifact.Content, 0644); err != nil {
			return restored, fmt.Errorf("job %q: restoring artifact %q: %w", entry.Job, artifact.Path, err)
		}
		restored++
	}
	return restored, nil
}

// Clean removes the given artifact paths, ignoring ones that do not exist.
func (r *Restorer) Clean(paths []string) error {
	for _, p := range paths {
		target := filepath.Join(r.OutputDir, filepath.FromSlash(p))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing artifact %q: %w", p, err)
		}
	}
	return nil
}

func (r *Restorer) targetPath(artifactPath string) (string, error) {
	if filepath.IsAbs(artifactPath) {
		return "", fmt.Errorf("artifact path must be relative")
	}
	target := filepath.Join(r.OutputDir, filepath.FromSlash(artifactPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}
	return target, nil
}
