// Package watcher re-runs a callback when model documents change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"feaprep/internal/log"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a set of documents for changes
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
}

// New creates a watcher calling onChange with the absolute path of each
// changed document
func New(paths []string, onChange func(path string)) *Watcher {
	return &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch blocks until ctx is cancelled. Changes to one document are
// debounced independently of the others; callbacks for the same document
// never overlap. A callback still running when ctx ends is waited for.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// Directories are watched rather than files so editors that replace the
	// file on save keep being followed
	files := make(map[string]*sync.Mutex, len(w.paths))
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fw.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
		files[abs] = &sync.Mutex{}
		log.Infof("watching %s for changes", abs)
	}

	// inflight counts scheduled and running callbacks; Watch returns only
	// after every callback that started has finished
	var inflight sync.WaitGroup
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range timers {
			if timer.Stop() {
				inflight.Done()
			}
		}
		inflight.Wait()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			running, watched := files[abs]
			if !watched || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer, exists := timers[abs]; exists && timer.Stop() {
				inflight.Done()
			}
			inflight.Add(1)
			timers[abs] = time.AfterFunc(w.debounce, func() {
				defer inflight.Done()
				if ctx.Err() != nil {
					return
				}
				running.Lock()
				defer running.Unlock()
				log.Debugf("document changed: %s", abs)
				w.onChange(abs)
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
