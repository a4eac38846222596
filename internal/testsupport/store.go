package testsupport

import (
	"context"
	"testing"

	"rigdna/internal/archive"
	"rigdna/internal/config"
)

// MustOpenArchive opens an archive.Store for tests and registers cleanup.
func MustOpenArchive(t testing.TB, cfg *config.Config) *archive.Store {
	t.Helper()

	store, err := archive.Open(cfg)
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddEntry archives the document at path for tests using the provided store.
func AddEntry(t testing.TB, store *archive.Store, rig, path string) *archive.Entry {
	t.Helper()

	entry, err := store.Add(context.Background(), rig, path, archive.TriggerManual, 0)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return entry
}
