// Package watch re-runs a callback when watched files change. Bursts of
// filesystem events are collapsed into one call per quiet period.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hejijunhao/tagcheck/internal/logging"
)

// DefaultDebounce is the quiet period after the last event before the
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter limits which changed paths count. Paths that fail f are ignored.
func WithFilter(f func(path string) bool) Option {
	return func(w *Watcher) { w.filter = f }
}

// Watcher watches files and directories (recursively).
type Watcher struct {
	paths    []string
	debounce time.Duration
	filter   func(string) bool
	log      *slog.Logger
	ready    chan struct{}
}

// New creates a Watcher over paths.
func New(paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
		log:      logging.New("watch"),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once every path is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run blocks until ctx ends, calling fn with the sorted set of changed paths
// after each burst of changes. An error from fn is logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, changed []string) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	// Single files are watched through their directory; only the named
	// files in such directories count.
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		if !info.IsDir() {
			files[abs] = true
			if err := fw.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watch: add %s: %w", abs, err)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			dirs[path] = true
			return fw.Add(path)
		})
		if err != nil {
			return fmt.Errorf("watch: add %s: %w", abs, err)
		}
	}
	close(w.ready)

	relevant := func(name string) bool {
		if files[name] || dirs[filepath.Dir(name)] {
			return w.filter(name)
		}
		return false
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New subdirectories of a watched tree are watched too.
			if ev.Op&fsnotify.Create != 0 && dirs[filepath.Dir(ev.Name)] {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fw.Add(ev.Name); err == nil {
						dirs[ev.Name] = true
					}
					continue
				}
			}
			if !relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Info("change detected", "files", len(changed))
			if err := fn(ctx, changed); err != nil {
				w.log.Error("re-run failed", "error", err)
			}
		}
	}
}
