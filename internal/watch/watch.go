// Package watch delivers statement files dropped under a directory tree to
// a handler, one at a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period a file must see before it is handled.
const DefaultDebounce = 2 * time.Second

// Handler processes one settled file.
type Handler func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Match selects the files to handle. Nil matches every file.
	Match func(path string) bool
	// Skip names directories that are neither watched nor handled.
	Skip []string
}

// Watcher watches a directory tree, including subdirectories created later.
type Watcher struct {
	root  string
	opts  Options
	fsw   *fsnotify.Watcher
	log   zerolog.Logger
	ready chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New starts watching root and every directory below it.
func New(root string, opts Options, log zerolog.Logger) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		root:   root,
		opts:   opts,
		fsw:    fsw,
		log:    log,
		ready:  make(chan struct{}),
		timers: make(map[string]*time.Timer),
	}
	if _, err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Ready is closed once Run is receiving events.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Close releases the underlying watcher. Run returns after Close.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.fsw.Close()
}

// Run delivers settled files to handle until ctx is done or the watcher is
// closed. handle is never called concurrently with itself. Run must be
// called at most once.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)

	due := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-due:
				handle(ctx, p)
			}
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	close(w.ready)
	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.event(ctx, ev, due)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) event(ctx context.Context, ev fsnotify.Event, due chan<- string) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if w.skipped(ev.Name) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			// Files may land in a new directory before it is watched.
			files, err := w.addTree(ev.Name)
			if err != nil {
				w.log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch directory")
			}
			for _, f := range files {
				w.schedule(ctx, f, due)
			}
		}
		return
	}
	if w.opts.Match != nil && !w.opts.Match(ev.Name) {
		return
	}
	w.schedule(ctx, ev.Name, due)
}

// schedule (re)starts the debounce timer of path.
func (w *Watcher) schedule(ctx context.Context, path string, due chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		select {
		case due <- path:
		case <-ctx.Done():
		}
	})
	w.log.Debug().Str("file", path).Msg("file changed")
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// addTree watches dir and its subdirectories and returns the matching files
// already inside them.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != w.root && w.skipped(path) {
				return fs.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		}
		if w.opts.Match == nil || w.opts.Match(path) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

func (w *Watcher) skipped(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, s := range w.opts.Skip {
			if part == s {
				return true
			}
		}
	}
	return false
}
