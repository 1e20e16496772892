package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jinzhu/copier"

	"scriptgraph/internal/acm"
)

// CacheEntry is the stored outcome of one compile job.
//
// Failed compilations are cacheable: the same fingerprint fails with the
// same diagnostics.
type CacheEntry struct {
	Fingerprint Fingerprint `json:"fingerprint"`

	// Job is the graph name, for humans reading the cache.
	Job string `json:"job"`

	// Interface is what dependents compile against.
	Interface acm.SubgraphInterface `json:"interface"`

	Warnings []string `json:"warnings,omitempty"`

	// Diagnostics are the validation errors of a failed compile.
	Diagnostics []string `json:"diagnostics,omitempty"`

	Artifacts []CachedArtifact `json:"artifacts"`
}

// Failed reports whether the entry records a failed compile.
func (e *CacheEntry) Failed() bool { return len(e.Diagnostics) > 0 }

// CachedArtifact is a single artifact stored in the cache.
type CachedArtifact struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// Cache stores compile results by fingerprint. A fingerprint that has been
// seen before is never compiled again.
type Cache interface {
	// Has checks if an entry exists for the given fingerprint.
	Has(fp Fingerprint) (bool, error)

	// Get returns nil if the entry does not exist.
	Get(fp Fingerprint) (*CacheEntry, error)

	Put(entry *CacheEntry) error
}

// FileCache implements Cache on the filesystem.
//
// Structure:
//
//	{CacheDir}/
//	  {fp[0:2]}/
//	    {fp}/
//	      metadata.json  (interface, warnings, diagnostics, artifact paths)
//	      artifacts/
//	        {index}.blob
type FileCache struct {
	CacheDir string
}

// NewFileCache creates a filesystem cache rooted at cacheDir.
func NewFileCache(cacheDir string) *FileCache {
	return &FileCache{CacheDir: cacheDir}
}

// Has checks if an entry exists for the given fingerprint.
func (c *FileCache) Has(fp Fingerprint) (bool, error) {
	_, err := os.Stat(filepath.Join(c.entryPath(fp), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking cache entry: %w", err)
	}
	return true, nil
}

// Get retrieves an entry by fingerprint.
func (c *FileCache) Get(fp Fingerprint) (*CacheEntry, error) {
	entryDir := c.entryPath(fp)

	data, err := os.ReadFile(filepath.Join(entryDir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache metadata: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing cache metadata: %w", err)
	}

	artifactsDir := filepath.Join(entryDir, "artifacts")
	for i := range entry.Artifacts {
		content, err := os.ReadFile(filepath.Join(artifactsDir, fmt.Sprintf("%d.blob", i)))
		if err != nil {
			return nil, fmt.Errorf("reading artifact %d: %w", i, err)
		}
		entry.Artifacts[i].Content = content
	}

	return &entry, nil
}

// Put stores an entry. The entry is written to a temporary directory and
// renamed into place, so a crash leaves either the old entry or none.
func (c *FileCache) Put(entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}
	if entry.Fingerprint == "" {
		return fmt.Errorf("cache entry has no fingerprint")
	}

	entryDir := c.entryPath(entry.Fingerprint)
	parentDir := filepath.Dir(entryDir)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmpDir, err := os.MkdirTemp(parentDir, "tmp-entry-"+entry.Fingerprint.Short()+"-")
	if err != nil {
		return fmt.Errorf("creating temp cache entry dir: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = os.RemoveAll(tmpDir)
	}()

	artifactsDir := filepath.Join(tmpDir, "artifacts")
	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return fmt.Errorf("creating cache artifacts dir: %w", err)
	}

	// Blobs first, so metadata only appears once they are complete.
	for i, artifact := range entry.Artifacts {
		blobPath := filepath.Join(artifactsDir, fmt.Sprintf("%d.blob", i))
		if err := WriteFileAtomic(blobPath, artifact.Content, 0644); err != nil {
			return fmt.Errorf("writing artifact %d: %w", i, err)
		}
	}

	metadata := *entry
	metadata.Artifacts = make([]CachedArtifact, len(entry.Artifacts))
	for i, a := range entry.Artifacts {
		metadata.Artifacts[i] = CachedArtifact{Path: a.Path}
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache metadata: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(tmpDir, "metadata.json"), data, 0644); err != nil {
		return fmt.Errorf("writing cache metadata: %w", err)
	}

	// A crash between remove and rename yields a cache miss, not corruption.
	_ = os.RemoveAll(entryDir)
	if err := os.Rename(tmpDir, entryDir); err != nil {
		return fmt.Errorf("committing cache entry: %w", err)
	}
	committed = true
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// entryPath shards entries by the first two hex digits.
func (c *FileCache) entryPath(fp Fingerprint) string {
	s := string(fp)
	if len(s) < 2 {
		return filepath.Join(c.CacheDir, s)
	}
	return filepath.Join(c.CacheDir, s[:2], s)
}

// MemoryCache implements Cache in memory. Entries are deep-copied on the way
// in and out, so callers never share state with the cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Fingerprint]*CacheEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Fingerprint]*CacheEntry)}
}

// Has checks if an entry exists.
func (c *MemoryCache) Has(fp Fingerprint) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[fp]
	return ok, nil
}

// Get retrieves a copy of an entry.
func (c *MemoryCache) Get(fp Fingerprint) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[fp]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return copyEntry(entry)
}

// Put stores a copy of entry.
func (c *MemoryCache) Put(entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}
	cp, err := copyEntry(entry)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[entry.Fingerprint] = cp
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyEntry(entry *CacheEntry) (*CacheEntry, error) {
	var cp CacheEntry
	if err := copier.CopyWithOption(&cp, entry, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copying cache entry: %w", err)
	}
	return &cp, nil
}
