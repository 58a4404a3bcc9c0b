package testsupport

import (
	"context"
	"testing"

	"piperun/internal/config"
	"piperun/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustRecent returns up to limit journal entries, newest first.
func MustRecent(t testing.TB, store *history.Store, limit int) []history.Entry {
	t.Helper()

	entries, err := store.Recent(context.Background(), history.Filter{Limit: limit})
	if err != nil {
		t.Fatalf("store.Recent: %v", err)
	}
	return entries
}
