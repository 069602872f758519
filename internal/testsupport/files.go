package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAsset creates a fixture file with placeholder content, creating parent
// directories as needed. Used to stand in for background videos and voice
// models in tests.
func WriteAsset(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("fixture"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
