package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rigdna/internal/testsupport"
	"rigdna/internal/watcher"
)

func startWatcher(t *testing.T, w *watcher.Watcher, dir string) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx, []string{dir}); err != nil && ctx.Err() == nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitResult(t *testing.T, results <-chan watcher.Result) watcher.Result {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for watch result")
		return watcher.Result{}
	}
}

func TestWatcherVerifiesChangedDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatchDebounce(25))
	dir := t.TempDir()

	results := make(chan watcher.Result, 4)
	w, err := watcher.New(cfg, nil, nil, func(res watcher.Result) { results <- res })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startWatcher(t, w, dir)

	path := filepath.Join(dir, "hero.dna")
	testsupport.WriteDocument(t, path, "hero")

	res := waitResult(t, results)
	if res.Err != nil {
		t.Fatalf("expected clean verification, got %v", res.Err)
	}
	if res.Path != path {
		t.Fatalf("result path = %q, want %q", res.Path, path)
	}
	if res.Rig != "hero" {
		t.Fatalf("result rig = %q, want hero", res.Rig)
	}
	if res.Entry != nil {
		t.Fatal("archive entry written without archive_on_change")
	}
}

func TestWatcherReportsCorruptDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatchDebounce(25))
	dir := t.TempDir()

	results := make(chan watcher.Result, 4)
	w, err := watcher.New(cfg, nil, nil, func(res watcher.Result) { results <- res })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startWatcher(t, w, dir)

	path := filepath.Join(dir, "broken.dna")
	if err := os.WriteFile(path, []byte("not a rig document"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	res := waitResult(t, results)
	if res.Err == nil {
		t.Fatal("expected verification error for corrupt file")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatchDebounce(25))
	dir := t.TempDir()

	results := make(chan watcher.Result, 4)
	w, err := watcher.New(cfg, nil, nil, func(res watcher.Result) { results <- res })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startWatcher(t, w, dir)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	testsupport.WriteDocument(t, filepath.Join(dir, "hero.dna"), "hero")

	res := waitResult(t, results)
	if filepath.Ext(res.Path) != ".dna" {
		t.Fatalf("unexpected result for %q", res.Path)
	}
	select {
	case extra := <-results:
		t.Fatalf("unexpected extra result for %q", extra.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherArchivesOnChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.DebounceMS = 25
	cfg.Watch.ArchiveOnChange = true
	store := testsupport.MustOpenArchive(t, cfg)
	dir := t.TempDir()

	results := make(chan watcher.Result, 4)
	w, err := watcher.New(cfg, store, nil, func(res watcher.Result) { results <- res })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startWatcher(t, w, dir)

	path := filepath.Join(dir, "hero.dna")
	testsupport.WriteDocument(t, path, "hero")

	res := waitResult(t, results)
	if res.Err != nil {
		t.Fatalf("expected clean verification, got %v", res.Err)
	}
	if res.Entry == nil {
		t.Fatal("expected archive entry with archive_on_change enabled")
	}
	entries, err := store.List(context.Background(), "hero")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("archive entries = %d, want 1", len(entries))
	}
}

func TestWatcherRequiresDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w, err := watcher.New(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty directory list")
	}
	if err := w.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
