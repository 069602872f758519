package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"clipforge/internal/config"
)

type commandContext struct {
	serverFlag *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	httpClient *http.Client
}

func newCommandContext(serverFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
		configFlag: configFlag,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverAddress resolves the daemon API address from the flag, falling back
// to the configured bind address.
func (c *commandContext) serverAddress() (string, error) {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return strings.TrimSpace(*c.serverFlag), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return "", fmt.Errorf("no daemon API address configured; set paths.api_bind or pass --server")
	}
	return bind, nil
}

func (c *commandContext) token() string {
	if c.tokenFlag != nil && strings.TrimSpace(*c.tokenFlag) != "" {
		return strings.TrimSpace(*c.tokenFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return strings.TrimSpace(cfg.Paths.APIToken)
	}
	return ""
}

// getJSON issues a GET against the daemon API and decodes the response into
// out.
func (c *commandContext) getJSON(path string, out any) error {
	return c.doJSON(http.MethodGet, path, nil, out)
}

// postJSON issues a POST with an optional JSON body.
func (c *commandContext) postJSON(path string, body, out any) error {
	return c.doJSON(http.MethodPost, path, body, out)
}

// deleteJSON issues a DELETE.
func (c *commandContext) deleteJSON(path string, out any) error {
	return c.doJSON(http.MethodDelete, path, nil, out)
}

func (c *commandContext) doJSON(method, path string, body, out any) error {
	address, err := c.serverAddress()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, "http://"+address+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", address, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(data, &payload); jsonErr == nil && payload.Error != "" {
			return fmt.Errorf("%s", payload.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
