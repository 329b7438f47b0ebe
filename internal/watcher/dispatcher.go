package watcher

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// enqueue adds path unless the same version is already queued or processed.
func (w *Watcher) enqueue(path string, fp fingerprint) {
	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()
	if w.stopped {
		return
	}
	if done, ok := w.processed[path]; ok && done == fp {
		log.Debugf("watcher: %s unchanged since last upload, skipping", filepath.Base(path))
		return
	}
	if _, queued := w.pending[path]; !queued {
		w.pendingOrder = append(w.pendingOrder, path)
	}
	w.pending[path] = fp
	w.dispatchCond.Signal()
}

// dispatchLoop runs the handler for queued files strictly one at a time.
func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		path, fp, ok := w.nextPending(ctx)
		if !ok {
			return
		}
		log.Infof("watcher: processing %s", filepath.Base(path))
		if errHandle := w.handler(ctx, path); errHandle != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("watcher: %s failed: %v", filepath.Base(path), errHandle)
			continue
		}
		w.dispatchMu.Lock()
		w.processed[path] = fp
		w.dispatchMu.Unlock()
	}
}

func (w *Watcher) nextPending(ctx context.Context) (string, fingerprint, bool) {
	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()
	for len(w.pendingOrder) == 0 {
		if w.stopped || ctx.Err() != nil {
			return "", fingerprint{}, false
		}
		w.dispatchCond.Wait()
	}
	if ctx.Err() != nil {
		return "", fingerprint{}, false
	}
	path := w.pendingOrder[0]
	w.pendingOrder = w.pendingOrder[1:]
	fp := w.pending[path]
	delete(w.pending, path)
	return path, fp, true
}

func (w *Watcher) stopDispatch() {
	w.dispatchMu.Lock()
	w.stopped = true
	w.dispatchCond.Broadcast()
	w.dispatchMu.Unlock()
}
