package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWordPress()
	c.normalizeProviders()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockFile) == "" {
		c.Paths.LockFile = defaultLockFile
	}
	if c.Paths.LockFile, err = ExpandPath(c.Paths.LockFile); err != nil {
		return fmt.Errorf("paths.lock_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeWordPress() {
	c.WordPress.BaseURL = strings.TrimRight(strings.TrimSpace(c.WordPress.BaseURL), "/")
	c.WordPress.EnglishSiteURL = strings.TrimRight(strings.TrimSpace(c.WordPress.EnglishSiteURL), "/")
	if c.WordPress.TimeoutSeconds <= 0 {
		c.WordPress.TimeoutSeconds = defaultWordPressTimeout
	}
}

func (c *Config) normalizeProviders() {
	if strings.TrimSpace(c.TextGen.BaseURL) == "" {
		c.TextGen.BaseURL = defaultTextGenBaseURL
	}
	if strings.TrimSpace(c.TextGen.Model) == "" {
		c.TextGen.Model = defaultTextGenModel
	}
	if c.TextGen.TimeoutSeconds <= 0 {
		c.TextGen.TimeoutSeconds = defaultTextGenTimeout
	}
	if strings.TrimSpace(c.MediaGen.BaseURL) == "" {
		c.MediaGen.BaseURL = defaultMediaGenBaseURL
	}
	if c.MediaGen.PollIntervalSeconds <= 0 {
		c.MediaGen.PollIntervalSeconds = defaultMediaPollInterval
	}
	if c.MediaGen.PollTimeoutSeconds <= 0 {
		c.MediaGen.PollTimeoutSeconds = defaultMediaPollTimeout
	}
	if strings.TrimSpace(c.AudioGen.BaseURL) == "" {
		c.AudioGen.BaseURL = defaultAudioGenBaseURL
	}
	if c.AudioGen.TimeoutSeconds <= 0 {
		c.AudioGen.TimeoutSeconds = defaultAudioGenTimeout
	}
	if c.Slack.RequestTimeout <= 0 {
		c.Slack.RequestTimeout = defaultSlackTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}

// ExpandPath resolves a leading ~ against the current user's home
// directory and returns an absolute path.
func ExpandPath(path string) (string, error) {
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
		return home + trimmed[1:], nil
	}
	return trimmed, nil
}
