package cache

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify-backed watcher over dir (typically the project
// root an embedder is compiling) that invalidates the in-memory tier for
// any .jac file that changes on disk, for a long-lived Program container
// (§5: "a long-lived server process may be reused per Program container").
// Grounded on the teacher's internal/core/mangle_watcher.go event loop.
// Off by default; the caller decides whether to run it, and cancelling ctx
// stops it and closes the underlying watcher.
func (c *Cache) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					c.Invalidate(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.debugf("cache: watch error: %v", err)
			}
		}
	}()
	return nil
}
