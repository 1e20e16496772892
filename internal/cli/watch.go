package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"scriptgraph/internal/build"
	"scriptgraph/internal/core"
)

func (a *app) watchCommand() *cobra.Command {
	var f buildFlags
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever a graph source changes",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.builder(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				if debounce, err = a.cfg.Watch.Interval(); err != nil {
					return invalidInvocationf("%v", err)
				}
			}
			w, err := newWatcher(b, a.logger)
			if err != nil {
				return internalError(err)
			}
			defer w.Close()

			return w.Run(cmd.Context(), debounce, func(ctx context.Context) {
				err := a.runBuild(cmd, b, "")
				switch {
				case err == nil, ctx.Err() != nil:
				case ExitCode(err) == ExitInternalError:
					a.logger.Error("watch.build", "err", err)
				default:
					a.logger.Warn("watch.build", "err", err)
				}
			})
		},
	}
	f.register(cmd.Flags(), true)
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet time before a rebuild (default from config)")
	return cmd
}

// watcher turns filesystem events into rebuilds. Events on files that are
// not sources, or whose content hash did not change, are ignored.
type watcher struct {
	baseDir  string
	patterns []string
	resolver *core.SourceResolver
	skip     []string
	hashes   map[string]uint64
	fs       *fsnotify.Watcher
	logger   *slog.Logger
}

func newWatcher(b *build.Builder, logger *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	patterns := b.Sources
	if len(patterns) == 0 {
		patterns = build.DefaultSources
	}
	w := &watcher{
		baseDir:  b.BaseDir,
		patterns: patterns,
		resolver: core.NewSourceResolver(b.BaseDir, b.Exclude...),
		skip:     []string{filepath.Clean(outputPath(b))},
		hashes:   map[string]uint64{},
		fs:       fsw,
		logger:   logger,
	}
	if b.CacheDir != "" {
		cache := b.CacheDir
		if !filepath.IsAbs(cache) {
			cache = filepath.Join(b.BaseDir, cache)
		}
		w.skip = append(w.skip, filepath.Clean(cache))
	}
	if err := w.snapshot(); err != nil {
		fsw.Close()
		return nil, err
	}
	if _, err := w.addTree(b.BaseDir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) Close() error { return w.fs.Close() }

// snapshot records the hash of every current source.
func (w *watcher) snapshot() error {
	set, err := w.resolver.Resolve(w.patterns)
	if err != nil {
		return err
	}
	for _, src := range set.Sources {
		w.hashes[src.Path] = core.QuickHash(src.Content)
	}
	return nil
}

// addTree watches root and every directory below it. It reports whether
// a source file inside changed, which happens when a directory is created
// together with its files.
func (w *watcher) addTree(root string) (bool, error) {
	changed := false
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.changed(path) {
				changed = true
			}
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.skipped(path)) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
	return changed, err
}

func (w *watcher) skipped(path string) bool {
	path = filepath.Clean(path)
	for _, s := range w.skip {
		if path == s {
			return true
		}
	}
	return false
}

// changed reports whether path is a source whose content differs from the
// last time it was seen. A removed source counts as changed.
func (w *watcher) changed(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ok, err := w.resolver.Match(w.patterns, rel); err != nil || !ok {
		return false
	}
	sum, err := core.QuickHashFile(path)
	if err != nil {
		_, had := w.hashes[rel]
		delete(w.hashes, rel)
		return had
	}
	if prev, had := w.hashes[rel]; had && prev == sum {
		return false
	}
	w.hashes[rel] = sum
	return true
}

// Run calls rebuild once, then again each time sources change and stay
// quiet for debounce. It returns when ctx is done.
func (w *watcher) Run(ctx context.Context, debounce time.Duration, rebuild func(context.Context)) error {
	rebuild(ctx)

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			changed := false
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if w.skipped(ev.Name) || strings.HasPrefix(filepath.Base(ev.Name), ".") {
						continue
					}
					c, err := w.addTree(ev.Name)
					if err != nil {
						w.logger.Warn("watch.add", "dir", ev.Name, "err", err)
					}
					changed = c
				}
			}
			if !changed && !w.changed(ev.Name) {
				continue
			}
			w.logger.Debug("watch.change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
			pending = true

		case <-timer.C:
			if pending {
				pending = false
				rebuild(ctx)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch.overflow")
				timer.Reset(debounce)
				pending = true
				continue
			}
			w.logger.Warn("watch.error", "err", err)
		}
	}
}
