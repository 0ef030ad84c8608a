package docstore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	f := NewFile(path)
	ctx := context.Background()

	if _, err := f.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read missing: err = %v, want ErrNotFound", err)
	}
	if _, err := f.Write(ctx, []byte(`{}`), "bogus"); !errors.Is(err, ErrStale) {
		t.Errorf("update missing: err = %v, want ErrStale", err)
	}

	v1, err := f.Write(ctx, []byte(`{"tasks":[]}`), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.Write(ctx, []byte(`{}`), ""); !errors.Is(err, ErrStale) {
		t.Errorf("create existing: err = %v, want ErrStale", err)
	}

	// An outside edit invalidates the held version.
	if err := os.WriteFile(path, []byte(`{"edited":true}`), 0o644); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if _, err := f.Write(ctx, []byte(`{"mine":true}`), v1); !errors.Is(err, ErrStale) {
		t.Errorf("stale write: err = %v, want ErrStale", err)
	}

	rev, err := f.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(rev.Content) != `{"edited":true}` {
		t.Errorf("content = %s", rev.Content)
	}
	if _, err := f.Write(ctx, []byte(`{"mine":true}`), rev.Version); err != nil {
		t.Errorf("write with fresh version: %v", err)
	}
}

func TestFileWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	f := NewFile(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	if err := f.Watch(ctx, slog.Default(), func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Unrelated files in the same directory are ignored.
	os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644)
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}
