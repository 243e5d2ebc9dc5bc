package confloader

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bloomgate.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	var fired atomic.Int32
	w.OnChange(func(string) { fired.Add(1) })

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.StartAsync()

	// Give the watcher goroutine a moment to start.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no change notification within 3s")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherStop(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.StartAsync()
	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
