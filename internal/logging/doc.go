// Package logging builds the slog loggers used across pressline and
// provides the structured attribute helpers and context plumbing that
// keep run/topic/stage correlation consistent between components.
package logging
