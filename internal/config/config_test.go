package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Workflow.WorkerWidth != 2 {
		t.Fatalf("default worker width should be 2, got %d", cfg.Workflow.WorkerWidth)
	}
	if cfg.Workflow.ExportMaxAttempts != 3 {
		t.Fatalf("default export attempts should be 3, got %d", cfg.Workflow.ExportMaxAttempts)
	}
	if !cfg.Cache.Enabled || cfg.Cache.MaxEntries != 1000 || cfg.Cache.TTLHours != 48 {
		t.Fatalf("unexpected cache defaults: %#v", cfg.Cache)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workflow]
worker_width = 4

[cache]
enabled = false

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("file should be detected")
	}
	if cfg.Workflow.WorkerWidth != 4 {
		t.Fatalf("worker width override lost: %d", cfg.Workflow.WorkerWidth)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache disable override lost")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging overrides lost: %#v", cfg.Logging)
	}
	// Untouched sections retain defaults.
	if cfg.Workflow.ExportMaxAttempts != 3 {
		t.Fatalf("unrelated default changed: %d", cfg.Workflow.ExportMaxAttempts)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"zero width", "[workflow]\nworker_width = 0\n", "worker_width"},
		{"bad log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"cache without bound", "[cache]\nenabled = true\nmax_entries = 0\n", "max_entries"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLLMKeyEnvOverride(t *testing.T) {
	t.Setenv("CLIPFORGE_LLM_API_KEY", "env-secret")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[llm]\napi_key = \"file-secret\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "env-secret" {
		t.Fatalf("environment key should win, got %q", cfg.LLM.APIKey)
	}
}

func TestVoicesDirDefaultsUnderAssets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\nasset_dir = \"/srv/assets\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tools.VoicesDir != filepath.Join("/srv/assets", "voices") {
		t.Fatalf("unexpected voices dir %q", cfg.Tools.VoicesDir)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	// The sample must itself parse and validate.
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
