package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case errWatch, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", errWatch)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.accepts(event.Name) {
		return
	}
	log.Debugf("file system event detected: %s %s", event.Op.String(), event.Name)

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.scheduleSettle(event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelSettle(event.Name)
	}
}

// accepts reports whether path is a visible file directly inside the watched directory
// with an accepted extension.
func (w *Watcher) accepts(path string) bool {
	if filepath.Clean(filepath.Dir(path)) != w.dir {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))]
	return ok
}

func (w *Watcher) scheduleSettle(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()
		w.settled(path)
	})
}

func (w *Watcher) cancelSettle(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) stopTimers() {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

// settled queues path once writes to it have stopped.
func (w *Watcher) settled(path string) {
	info, errStat := os.Stat(path)
	if errStat != nil {
		log.Debugf("watcher: skipping %s: %v", filepath.Base(path), errStat)
		return
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return
	}
	w.enqueue(path, fingerprint{size: info.Size(), modTime: info.ModTime()})
}
