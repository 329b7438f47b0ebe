// Package watcher uploads recordings as they appear in a directory.
// New files are debounced until writes settle, then handed one at a time to a handler.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultSettleDelay is how long a file must go without writes before it is processed.
const DefaultSettleDelay = 2 * time.Second

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Dir string
	// Extensions lists accepted file extensions without the dot. Matching ignores case.
	Extensions []string
	Settle     time.Duration
	Handler    Handler
}

// fingerprint identifies one version of a file.
type fingerprint struct {
	size    int64
	modTime time.Time
}

// Watcher manages the directory watch and the sequential processing queue.
type Watcher struct {
	dir        string
	extensions map[string]struct{}
	settle     time.Duration
	handler    Handler
	watcher    *fsnotify.Watcher

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	dispatchMu   sync.Mutex
	dispatchCond *sync.Cond
	pendingOrder []string
	pending      map[string]fingerprint
	processed    map[string]fingerprint
	stopped      bool
}

// New creates a watcher for opts.Dir. Call Run to start it.
func New(opts Options) (*Watcher, error) {
	if opts.Handler == nil {
		return nil, errors.New("watcher: handler is required")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watcher: directory is required")
	}
	dir, errAbs := filepath.Abs(strings.TrimSpace(opts.Dir))
	if errAbs != nil {
		return nil, fmt.Errorf("watcher: %w", errAbs)
	}
	fsw, errNewWatcher := fsnotify.NewWatcher()
	if errNewWatcher != nil {
		return nil, fmt.Errorf("watcher: %w", errNewWatcher)
	}
	w := &Watcher{
		dir:        dir,
		extensions: make(map[string]struct{}, len(opts.Extensions)),
		settle:     opts.Settle,
		handler:    opts.Handler,
		watcher:    fsw,
		timers:     make(map[string]*time.Timer),
		pending:    make(map[string]fingerprint),
		processed:  make(map[string]fingerprint),
	}
	if w.settle <= 0 {
		w.settle = DefaultSettleDelay
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			w.extensions[ext] = struct{}{}
		}
	}
	w.dispatchCond = sync.NewCond(&w.dispatchMu)
	return w, nil
}

// Run watches the directory until ctx ends. Files already present when Run starts are left alone.
func (w *Watcher) Run(ctx context.Context) error {
	if errAdd := w.watcher.Add(w.dir); errAdd != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("watcher: watch %s: %w", w.dir, errAdd)
	}
	log.Infof("watching %s for new recordings", w.dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatchLoop(ctx)
	}()

	w.processEvents(ctx)

	w.stopTimers()
	w.stopDispatch()
	wg.Wait()
	if errClose := w.watcher.Close(); errClose != nil {
		log.Errorf("watcher: close error: %v", errClose)
	}
	return nil
}
