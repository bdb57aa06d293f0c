package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// replaceFile swaps content in by rename so the watcher never sees a
// half-written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 8)
	errs := make(chan error, 8)
	w, err := NewWatcher(path, func(c *Config) { changes <- c }, func(err error) { errs <- err })
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	replaceFile(t, path, "logging:\n  level: debug\n")

	select {
	case cfg := <-changes:
		if cfg.Logging.Level != "debug" {
			t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
		}
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	replaceFile(t, path, "logging:\n  level: loud\n")

	select {
	case err := <-errs:
		if _, ok := err.(ValidationErrors); !ok {
			t.Errorf("error = %T, want ValidationErrors", err)
		}
	case cfg := <-changes:
		t.Fatalf("invalid config should not be delivered, got %+v", cfg)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for validation error")
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")
	if _, err := NewWatcher(path, func(*Config) {}, nil); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w, err := NewWatcher(path, func(*Config) {}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
