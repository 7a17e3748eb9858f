package pkgindex

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/rdocs/rd2qmd/internal/logfields"
)

// fsWatcher owns the fsnotify.Watcher backing Resolver.Watch.
type fsWatcher struct {
	w *fsnotify.Watcher
}

// Watch monitors every configured library path for packages appearing or
// disappearing and invalidates the in-memory (never the disk) cache entry
// for the affected package name. It is opt-in: Resolve never depends on it,
// and a Resolver that never calls Watch keeps its in-memory cache scoped to
// one process invocation, as if Watch didn't exist.
func (r *Resolver) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, lib := range r.libPaths {
		if err := w.Add(lib); err != nil {
			slog.Warn("pkgindex: failed to watch library path", slog.String("path", lib), logfields.Error(err))
		}
	}

	r.watchMu.Lock()
	r.watcher = &fsWatcher{w: w}
	r.watchMu.Unlock()

	go r.watchLoop(ctx, w)
	return nil
}

func (r *Resolver) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				r.invalidate(packageNameFromPath(ev.Name))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("pkgindex: watch error", logfields.Error(err))
		}
	}
}

func (r *Resolver) invalidate(pkg string) {
	if pkg == "" {
		return
	}
	r.mu.Lock()
	delete(r.mem, pkg)
	r.metrics.ObserveCacheSize(len(r.mem))
	r.mu.Unlock()
}

func packageNameFromPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// StopWatch closes the fsnotify watcher started by Watch, if any.
func (r *Resolver) StopWatch() {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.watcher != nil {
		_ = r.watcher.w.Close()
		r.watcher = nil
	}
}
