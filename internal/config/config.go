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
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
	LockFile string `toml:"lock_file"`
}

// WordPress contains configuration for the publishing target.
type WordPress struct {
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	AppPassword    string `toml:"app_password"`
	HebrewCategory string `toml:"hebrew_category"`
	EnglishSiteURL string `toml:"english_site_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Slack contains configuration for the approval review channel.
type Slack struct {
	WebhookURL     string `toml:"webhook_url"`
	Channel        string `toml:"channel"`
	ReviewerID     string `toml:"reviewer_id"`
	RequestTimeout int    `toml:"request_timeout"`
}

// TextGen contains connection settings for the text generation provider.
type TextGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MediaGen contains connection settings for the image/video generation provider.
type MediaGen struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `toml:"poll_timeout_seconds"`
}

// AudioGen contains connection settings for the podcast audio provider.
type AudioGen struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	VoiceID        string `toml:"voice_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Healer contains thresholds for defect detection and remediation.
type Healer struct {
	SEOScoreThreshold int `toml:"seo_score_threshold"`
	StuckDraftHours   int `toml:"stuck_draft_hours"`
	ScanLimit         int `toml:"scan_limit"`
}

// Workflow contains stage execution timing configuration.
type Workflow struct {
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
	StaleRunHours       int `toml:"stale_run_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for pressline.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, API bind address and token
//   - WordPress: publishing target credentials
//   - Slack: approval review channel
//   - TextGen/MediaGen/AudioGen: generation provider connections
//   - Healer: defect thresholds for the auto-healer
//   - Workflow: stage timeouts and stale-run recovery window
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	WordPress WordPress `toml:"wordpress"`
	Slack     Slack     `toml:"slack"`
	TextGen   TextGen   `toml:"textgen"`
	MediaGen  MediaGen  `toml:"mediagen"`
	AudioGen  AudioGen  `toml:"audiogen"`
	Healer    Healer    `toml:"healer"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/pressline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PRESSLINE_CONFIG"))
	}
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
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

	projectPath, err := filepath.Abs("pressline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the pipeline ledger database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "pressline.db")
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
