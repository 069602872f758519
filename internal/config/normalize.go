package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return err
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	if c.Tools.VoicesDir == "" && c.Paths.AssetDir != "" {
		c.Tools.VoicesDir = filepath.Join(c.Paths.AssetDir, "voices")
	} else if c.Tools.VoicesDir, err = expandPath(c.Tools.VoicesDir); err != nil {
		return err
	}

	if key := strings.TrimSpace(os.Getenv("CLIPFORGE_LLM_API_KEY")); key != "" {
		c.LLM.APIKey = key
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}
