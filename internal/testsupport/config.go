// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"pressline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.WordPress.BaseURL = "http://wordpress.test"
	cfg.WordPress.Username = "test"
	cfg.WordPress.AppPassword = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithReviewer sets the configured Slack reviewer on the test config.
func WithReviewer(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Slack.ReviewerID = id
	}
}

// WithSEOThreshold overrides the healer's minimum acceptable SEO score.
func WithSEOThreshold(score int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Healer.SEOScoreThreshold = score
	}
}
