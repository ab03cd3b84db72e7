package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWordPress(); err != nil {
		return err
	}
	if err := c.validateHealer(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWordPress() error {
	if c.WordPress.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/pressline/config.toml"
		}
		return fmt.Errorf("wordpress.base_url is required. Edit %s (create with 'pressline config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateHealer() error {
	if c.Healer.SEOScoreThreshold < 0 || c.Healer.SEOScoreThreshold > 100 {
		return errors.New("healer.seo_score_threshold must be between 0 and 100")
	}
	if c.Healer.StuckDraftHours <= 0 {
		return errors.New("healer.stuck_draft_hours must be positive")
	}
	if c.Healer.ScanLimit <= 0 {
		return errors.New("healer.scan_limit must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		return errors.New("workflow.stage_timeout_seconds must be positive")
	}
	if c.Workflow.StaleRunHours <= 0 {
		return errors.New("workflow.stale_run_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
