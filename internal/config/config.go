package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	AssetDir string `toml:"asset_dir"`
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Workflow contains batch scheduling and retention settings.
type Workflow struct {
	// WorkerWidth bounds how many jobs a batch processes concurrently.
	WorkerWidth int `toml:"worker_width"`
	// ExportMaxAttempts bounds automatic retries for export batch items.
	ExportMaxAttempts int `toml:"export_max_attempts"`
	// JobRetentionHours controls how long terminal jobs and batches are kept.
	JobRetentionHours int `toml:"job_retention_hours"`
	// SweepIntervalSeconds sets how often the retention sweep runs.
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
}

// StageTimeouts holds per-stage execution deadlines in seconds. TTS and
// compilation have very different expected durations, so each stage gets its
// own bound. Zero disables the deadline for that stage.
type StageTimeouts struct {
	Script    int `toml:"script"`
	Video     int `toml:"video"`
	TTS       int `toml:"tts"`
	Subtitles int `toml:"subtitles"`
	Compile   int `toml:"compile"`
}

// Cache contains result cache bounds and sweep settings.
type Cache struct {
	Enabled              bool `toml:"enabled"`
	MaxEntries           int  `toml:"max_entries"`
	TTLHours             int  `toml:"ttl_hours"`
	SweepIntervalSeconds int  `toml:"sweep_interval_seconds"`
}

// Tools contains external tool binaries and their settings.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	PiperBinary   string `toml:"piper_binary"`
	VoicesDir     string `toml:"voices_dir"`
	WhisperBinary string `toml:"whisper_binary"`
	WhisperModel  string `toml:"whisper_model"`
}

// LLM contains connection settings for script generation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipforge.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address, and API token
//   - Workflow: batch worker width, export retry bound, job retention
//   - StageTimeouts: per-stage execution deadlines
//   - Cache: result cache bounds and TTL sweep
//   - Tools: ffmpeg/piper/whisper binaries and models
//   - LLM: script generation endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	StageTimeouts StageTimeouts `toml:"stage_timeouts"`
	Cache         Cache         `toml:"cache"`
	Tools         Tools         `toml:"tools"`
	LLM           LLM           `toml:"llm"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("clipforge.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates all configured directories if they do not exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.AssetDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
