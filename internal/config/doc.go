// Package config loads, validates, and normalizes pressline configuration
// from TOML files with sensible defaults for every section.
package config
