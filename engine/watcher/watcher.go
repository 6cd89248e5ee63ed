// Package watcher reports changes to scene files so the tracer can reload them.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/logger"
	"github.com/fsnotify/fsnotify"
)

var log = logger.New("watcher")

// DefaultDebounce is how long a file must stay quiet after a change before the callback runs.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a set of files. Directories are watched rather than the files themselves, so
// editors that save by writing a new file and renaming it over the old one are still seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	primary  string
	debounce time.Duration

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithPaths adds more files, such as the meshes a scene description lists.
func WithPaths(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			w.files[normalize(p)] = true
		}
	}
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// New starts watching path and any WithPaths files. Events are only delivered once Run is called.
//
// Parameters:
//   - path: the primary file
//   - options: watcher options
//
// Returns:
//   - *Watcher: the watcher, to be closed by Run
//   - error: an error if a parent directory cannot be watched
func New(path string, options ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	primary := normalize(path)
	w := &Watcher{
		fs:       fsw,
		primary:  primary,
		files:    map[string]bool{primary: true},
		dirs:     make(map[string]bool),
		debounce: DefaultDebounce,
	}
	for _, opt := range options {
		opt(w)
	}

	if err := w.syncDirs(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetPaths replaces the extra files with paths; the primary file stays watched. Directories no
// longer holding a watched file are dropped. It is safe to call from onChange.
//
// Parameters:
//   - paths: the new extra files, typically the meshes of a reloaded description
//
// Returns:
//   - error: an error if a new parent directory cannot be watched
func (w *Watcher) SetPaths(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = map[string]bool{w.primary: true}
	for _, p := range paths {
		w.files[normalize(p)] = true
	}
	return w.syncDirsLocked()
}

func (w *Watcher) syncDirs() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncDirsLocked()
}

// syncDirsLocked makes the watched directories exactly the parents of the watched files.
func (w *Watcher) syncDirsLocked() error {
	want := make(map[string]bool, len(w.files))
	for f := range w.files {
		want[filepath.Dir(f)] = true
	}
	for dir := range want {
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	for dir := range w.dirs {
		if want[dir] {
			continue
		}
		if err := w.fs.Remove(dir); err != nil {
			log.Debugf("unwatch %s: %v", dir, err)
		}
		delete(w.dirs, dir)
	}
	return nil
}

func (w *Watcher) watches(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

// Run calls onChange once per burst of writes to any watched file, after the burst has been quiet
// for the debounce period. onChange runs on Run's goroutine. Run returns nil when ctx ends and
// closes the watcher.
//
// Parameters:
//   - ctx: stops the watcher
//   - onChange: receives the last file changed in the burst
//
// Returns:
//   - error: nil, or the watcher's close error
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return w.fs.Close()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			name := normalize(ev.Name)
			if !w.watches(name) || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debugf("%s: %s", ev.Op, name)
			last = name
			timer.Reset(w.debounce)
		case <-timer.C:
			log.Infof("reloading after change to %s", last)
			onChange(last)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watch error: %v", err)
		}
	}
}

// Watch is New followed by Run.
func Watch(ctx context.Context, path string, onChange func(path string), options ...Option) error {
	w, err := New(path, options...)
	if err != nil {
		return err
	}
	return w.Run(ctx, onChange)
}
