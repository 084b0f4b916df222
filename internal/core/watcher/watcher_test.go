package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func collectBatch(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-ch:
		return paths
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch received")
		return nil
	}
}

func TestWatcherCoalescesChanges(t *testing.T) {
	dir := t.TempDir()
	ch := make(chan []string, 1)

	w, err := NewWatcher(100*time.Millisecond, nil, func(p string) bool {
		return strings.HasSuffix(p, ".py")
	}, nil, func(paths []string) {
		ch <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}

	// Two quick writes inside one debounce window.
	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("import os\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.py"), []byte("import sys\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := collectBatch(t, ch)
	seen := make(map[string]bool)
	for _, p := range paths {
		seen[filepath.Base(p)] = true
	}
	if !seen["a.py"] || !seen["b.py"] {
		t.Errorf("batch = %v", paths)
	}
	if seen["ignored.txt"] {
		t.Errorf("unsupported file in batch: %v", paths)
	}
}

func TestWatcherPassNames(t *testing.T) {
	dir := t.TempDir()
	ch := make(chan []string, 1)

	w, err := NewWatcher(50*time.Millisecond, nil, func(string) bool { return false }, []string{"boundary.toml"}, func(paths []string) {
		ch <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "boundary.toml"), []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := collectBatch(t, ch)
	if len(paths) != 1 || filepath.Base(paths[0]) != "boundary.toml" {
		t.Errorf("batch = %v", paths)
	}
}
