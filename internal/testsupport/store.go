package testsupport

import (
	"context"
	"testing"

	"lector/internal/config"
	"lector/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBook creates a new queue item for tests using the provided store.
func NewBook(t testing.TB, store *queue.Store, sourcePath, fingerprint string) *queue.Item {
	t.Helper()

	item, err := store.NewBook(context.Background(), sourcePath, fingerprint, "")
	if err != nil {
		t.Fatalf("store.NewBook: %v", err)
	}
	return item
}
