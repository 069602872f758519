package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WorkerWidth < 1 {
		return errors.New("workflow.worker_width must be at least 1")
	}
	if c.Workflow.ExportMaxAttempts < 1 {
		return errors.New("workflow.export_max_attempts must be at least 1")
	}
	if c.Workflow.JobRetentionHours < 1 {
		return errors.New("workflow.job_retention_hours must be at least 1")
	}
	if c.Workflow.SweepIntervalSeconds < 1 {
		return errors.New("workflow.sweep_interval_seconds must be at least 1")
	}
	for name, value := range map[string]int{
		"stage_timeouts.script":    c.StageTimeouts.Script,
		"stage_timeouts.video":     c.StageTimeouts.Video,
		"stage_timeouts.tts":       c.StageTimeouts.TTS,
		"stage_timeouts.subtitles": c.StageTimeouts.Subtitles,
		"stage_timeouts.compile":   c.StageTimeouts.Compile,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.MaxEntries < 1 {
		return errors.New("cache.max_entries must be at least 1 when the cache is enabled")
	}
	if c.Cache.TTLHours < 1 {
		return errors.New("cache.ttl_hours must be at least 1 when the cache is enabled")
	}
	if c.Cache.SweepIntervalSeconds < 1 {
		return errors.New("cache.sweep_interval_seconds must be at least 1 when the cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
