package namedsql

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// DefaultDebounce is how long a Watcher waits after the last change before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher keeps a registry loaded from a path up to date. The path must be
// on the OS filesystem.
//
// A failed reload is reported and the previous registry stays current.
type Watcher struct {
	loader   *Loader
	path     string
	file     string // set when path is a single file
	watcher  *fsnotify.Watcher
	current  atomic.Pointer[Queries]
	debounce time.Duration
	onReload func(*Queries)
	onError  func(error)
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WatchDebounce sets the quiet period before a reload. Default is DefaultDebounce.
func WatchDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WatchOnReload is called with the new registry after every successful reload.
func WatchOnReload(fn func(*Queries)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// WatchOnError is called when a reload or the underlying watcher fails.
// Failures are logged at warn level when it is not set.
func WatchOnError(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// Watch loads path and reloads it whenever a matching file under it is
// written, created, removed or renamed. The initial load must succeed.
func (l *Loader) Watch(ctx context.Context, path string, opts ...WatchOption) (*Watcher, error) {
	qs, err := l.LoadPath(ctx, path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("namedsql: create watcher: %w", err)
	}
	w := &Watcher{
		loader:   l,
		path:     path,
		watcher:  fw,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.onError == nil {
		w.onError = func(err error) {
			l.logger.Warn("watch failed", "path", path, "error", err)
		}
	}
	w.current.Store(qs)
	if err := w.addDirs(); err != nil {
		fw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.run(ctx)
	return w, nil
}

// Queries returns the current registry.
func (w *Watcher) Queries() *Queries {
	return w.current.Load()
}

// Close stops watching. It waits for a reload in progress to finish.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// addDirs watches path itself, or its parent and every non-hidden
// directory below it.
func (w *Watcher) addDirs() error {
	info, err := w.loader.fs.Stat(w.path)
	if err != nil {
		return NewLoadError(w.path, err)
	}
	if !info.IsDir() {
		w.file = filepath.Clean(w.path)
		if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
			return fmt.Errorf("namedsql: watch %s: %w", w.path, err)
		}
		return nil
	}
	return afero.Walk(w.loader.fs, w.path, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if p != w.path && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("namedsql: watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var debounceCh <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
				debounceCh = timer.C
			}
		case <-debounceCh:
			debounceCh = nil
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.file != "" {
		return filepath.Clean(event.Name) == w.file
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if w.loader.matches(name) {
		return true
	}
	// A created directory may hold files to load.
	if event.Has(fsnotify.Create) {
		if info, err := w.loader.fs.Stat(event.Name); err == nil && info.IsDir() {
			return true
		}
	}
	return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	qs, err := w.loader.LoadPath(ctx, w.path)
	if err != nil {
		w.onError(err)
		return
	}
	w.current.Store(qs)
	// Pick up directories created since the last load.
	if err := w.addDirs(); err != nil {
		w.onError(err)
	}
	w.loader.logger.DebugContext(ctx, "reloaded queries", "path", w.path, "queries", qs.Len())
	if w.onReload != nil {
		w.onReload(qs)
	}
}
