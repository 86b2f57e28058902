package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// minWatchTick bounds how often pending changes are checked.
const minWatchTick = 50 * time.Millisecond

// debouncer collects changed directories and releases each one once no
// change has been seen for interval.
type debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	pending  map[string]time.Time
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval, pending: make(map[string]time.Time)}
}

// Touch records a change of dir at t.
func (d *debouncer) Touch(dir string, t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[dir] = t
}

// Due removes and returns, sorted, the directories quiet since now-interval.
func (d *debouncer) Due(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var due []string
	for dir, at := range d.pending {
		if now.Sub(at) < d.interval {
			continue
		}
		due = append(due, dir)
		delete(d.pending, dir)
	}
	sort.Strings(due)
	return due
}

// Pending returns the number of directories waiting to be rescanned.
func (d *debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

type dirWatcher struct {
	app       *DPCApp
	fsw       *fsnotify.Watcher
	recursive bool
	changes   *debouncer
	watched   map[string]bool
}

// Watch scans the directories at rawPaths, then rescans a directory each
// time its contents change and stay quiet for the configured debounce. It
// returns when ctx is done.
func (a *DPCApp) Watch(ctx context.Context, rawPaths []string, recursive bool) error {
	debounce, err := a.cfg.Watch.DebounceDuration()
	if err != nil {
		return a.op.Fail(err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return a.op.Fail(fmt.Errorf("creating watcher: %w", err))
	}
	defer fsw.Close()

	w := &dirWatcher{
		app:       a,
		fsw:       fsw,
		recursive: recursive,
		changes:   newDebouncer(debounce),
		watched:   make(map[string]bool),
	}

	for _, raw := range rawPaths {
		results, err := a.Scan(ctx, raw, recursive)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := w.add(res.Path); err != nil {
				return a.op.Fail(err)
			}
		}
	}
	a.logger.Info("watching directories", "count", len(w.watched), "debounce", debounce)

	ticker := time.NewTicker(max(debounce/2, minWatchTick))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event, time.Now())

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)

		case now := <-ticker.C:
			for _, dir := range w.changes.Due(now) {
				w.rescan(ctx, dir)
			}
		}
	}
}

func (w *dirWatcher) add(dir string) error {
	if w.watched[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.watched[dir] = true
	return nil
}

// handle maps an event to the directory whose listing it changes.
func (w *dirWatcher) handle(event fsnotify.Event, now time.Time) {
	name := filepath.Clean(event.Name)

	if w.watched[name] {
		// The watched directory itself was removed or renamed.
		w.changes.Touch(name, now)
		return
	}

	if w.recursive && event.Has(fsnotify.Create) {
		if info, err := os.Lstat(name); err == nil && info.IsDir() {
			w.changes.Touch(name, now)
		}
	}
	w.changes.Touch(filepath.Dir(name), now)
}

func (w *dirWatcher) rescan(ctx context.Context, dir string) {
	res, err := w.app.service.ScanDirectory(ctx, dir)
	if err != nil {
		w.app.logger.Warn("rescan failed", "path", dir, "error", err)
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			// inotify drops the watch of a deleted directory.
			delete(w.watched, dir)
		}
		return
	}

	if err := w.add(res.Path); err != nil {
		w.app.logger.Warn("cannot watch directory", "path", res.Path, "error", err)
	}
	if w.recursive {
		for _, sub := range res.Subdirs {
			if !w.watched[sub] {
				w.changes.Touch(sub, time.Time{})
			}
		}
	}
}
