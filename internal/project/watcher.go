package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher reports file changes below a directory in debounced batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	exclude   []glob.Glob
	onChange  func([]string)
	onError   func(error)

	callbackMu sync.Mutex
	pendingMu  sync.Mutex
	pending    map[string]struct{}
	timer      *time.Timer
	closed     bool
	done       chan struct{}
}

// NewWatcher watches root. exclude holds patterns matched against paths
// relative to root with '/' separators; onChange receives absolute paths.
func NewWatcher(root string, debounce time.Duration, exclude []glob.Glob, onChange func([]string), onError func(error)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if onError == nil {
		onError = func(error) {}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsWatcher: fsw,
		root:      root,
		debounce:  debounce,
		exclude:   exclude,
		onChange:  onChange,
		onError:   onError,
		pending:   make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	if err := w.watchRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *Watcher) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.excluded(event.Name) {
						continue
					}
					if err := w.watchRecursive(event.Name); err != nil {
						w.onError(err)
						continue
					}
					w.enqueueExisting(event.Name)
					continue
				}
			}
			if w.excluded(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range w.exclude {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) enqueueExisting(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !w.excluded(path) {
			w.schedule(path)
		}
		return nil
	})
}

// Close stops watching. Pending changes are discarded.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	err := w.fsWatcher.Close()
	<-w.done
	return err
}
