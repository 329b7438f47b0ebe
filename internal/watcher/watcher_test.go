package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRequiresHandlerAndDir(t *testing.T) {
	if _, err := New(Options{Dir: t.TempDir()}); err == nil {
		t.Fatal("New() without handler error = nil")
	}
	if _, err := New(Options{Handler: func(context.Context, string) error { return nil }}); err == nil {
		t.Fatal("New() without dir error = nil")
	}
}

func TestAccepts(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Options{Dir: dir, Extensions: []string{".MP4", "mov"}, Handler: func(context.Context, string) error { return nil }})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = w.watcher.Close() }()

	tests := []struct {
		path string
		want bool
	}{
		{path: filepath.Join(dir, "clip.mp4"), want: true},
		{path: filepath.Join(dir, "clip.MOV"), want: true},
		{path: filepath.Join(dir, "notes.txt"), want: false},
		{path: filepath.Join(dir, ".partial.mp4"), want: false},
		{path: filepath.Join(dir, "nested", "clip.mp4"), want: false},
	}
	for _, tt := range tests {
		if got := w.accepts(tt.path); got != tt.want {
			t.Errorf("accepts(%s) = %v, want %v", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestEnqueueSkipsProcessedVersion(t *testing.T) {
	w, err := New(Options{Dir: t.TempDir(), Handler: func(context.Context, string) error { return nil }})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = w.watcher.Close() }()

	fp := fingerprint{size: 10, modTime: time.Unix(100, 0)}
	w.processed["a.mp4"] = fp
	w.enqueue("a.mp4", fp)
	w.enqueue("b.mp4", fp)
	w.enqueue("b.mp4", fingerprint{size: 20, modTime: time.Unix(200, 0)})
	w.enqueue("a.mp4", fingerprint{size: 11, modTime: time.Unix(101, 0)})

	if got := w.pendingOrder; len(got) != 2 || got[0] != "b.mp4" || got[1] != "a.mp4" {
		t.Fatalf("pendingOrder = %v", got)
	}
	if w.pending["b.mp4"].size != 20 {
		t.Fatalf("pending b.mp4 = %+v, want latest version", w.pending["b.mp4"])
	}
}

func TestRunProcessesNewRecordingsSequentially(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.mp4"), []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var (
		mu       sync.Mutex
		handled  []string
		inFlight atomic.Int32
		maxSeen  atomic.Int32
	)
	done := make(chan struct{}, 4)
	handler := func(_ context.Context, path string) error {
		n := inFlight.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		mu.Lock()
		handled = append(handled, filepath.Base(path))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	w, err := New(Options{Dir: dir, Extensions: []string{"mp4"}, Settle: 50 * time.Millisecond, Handler: handler})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(w.watcher.WatchList()) > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, name := range []string{"one.mp4", "two.mp4", "skip.txt"} {
		if errWrite := os.WriteFile(filepath.Join(dir, name), []byte("recording "+name), 0o644); errWrite != nil {
			t.Fatalf("write %s: %v", name, errWrite)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for upload %d", i+1)
		}
	}
	cancel()
	if errRun := <-runDone; errRun != nil {
		t.Fatalf("Run() error = %v", errRun)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 {
		t.Fatalf("handled = %v, want one.mp4 and two.mp4", handled)
	}
	for _, name := range handled {
		if name != "one.mp4" && name != "two.mp4" {
			t.Fatalf("handled unexpected file %s", name)
		}
	}
	if maxSeen.Load() != 1 {
		t.Fatalf("max concurrent handlers = %d, want 1", maxSeen.Load())
	}
}
