// Package watch is the post-edit hook reference implementation: a debounced
// recursive file watcher that invalidates cached summaries for changed files
// and optionally re-analyzes them to warm the cache.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and invokes a callback with batches of
// changed file paths after a debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	match    func(path string) bool
	debounce time.Duration
	callback func(files []string)

	cancel chan struct{}
	doneCh chan struct{}

	mu          sync.Mutex
	accumulated map[string]bool
	timer       *time.Timer
	stopOnce    sync.Once
}

// New creates a watcher over root. match filters paths; nil accepts all.
func New(root string, match func(path string) bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	w := &Watcher{
		watcher:     fsw,
		root:        root,
		match:       match,
		debounce:    DefaultDebounce,
		accumulated: make(map[string]bool),
		cancel:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	if err := w.addRecursively(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching and blocks until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}
	w.callback = callback
	defer close(w.doneCh)

	fireCh := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()
		case <-w.cancel:
			w.stopTimer()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// New directories join the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursively(event.Name); err != nil {
						log.Printf("watch: failed to add %s: %v", event.Name, err)
					}
				}
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.mu.Lock()
			w.accumulated[event.Name] = true
			w.mu.Unlock()
			w.resetTimer(fireCh)
		case <-fireCh:
			w.fire()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		}
	}
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.cancel)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if len(w.accumulated) == 0 {
		w.mu.Unlock()
		return
	}
	files := make([]string, 0, len(w.accumulated))
	for f := range w.accumulated {
		files = append(files, f)
	}
	w.accumulated = make(map[string]bool)
	w.mu.Unlock()

	w.callback(files)
}

func (w *Watcher) resetTimer(fireCh chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.match(event.Name)
}

func (w *Watcher) addRecursively(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("watch: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if name == ".git" || name == "node_modules" || name == "__pycache__" {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("watch: failed to watch %s: %v", path, err)
		}
		return nil
	})
}
