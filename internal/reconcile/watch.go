package reconcile

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// Watch runs IncrementalSync once, then again every time fsnotify reports
// a change under kb's root, until ctx is cancelled. Debounced: bursts of
// events (a save touching several files) coalesce into one sync after a
// quiet period, rather than one sync per event.
func (r *Reconciler) Watch(ctx context.Context, kb *entrymodel.KB, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	if _, err := r.IncrementalSync(ctx, kb); err != nil {
		return fmt.Errorf("reconcile: initial sync before watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reconcile: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, kb.RootPath); err != nil {
		return fmt.Errorf("reconcile: watch %s: %w", kb.RootPath, err)
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("reconcile: watcher error", "error", err)
		case <-timer.C:
			if _, err := r.IncrementalSync(ctx, kb); err != nil {
				r.log.Warn("reconcile: incremental sync failed", "kb", kb.Name, "error", err)
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".md" {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(filepath.Base(path), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
