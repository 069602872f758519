package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewJob creates a standalone job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, req queue.Request) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), req)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// Request returns a minimal valid render request for tests.
func Request(script string) queue.Request {
	return queue.Request{
		Script:       script,
		BackgroundID: "minecraft",
		Voice:        "en_US-amy",
		Preset:       "1080p",
	}
}
