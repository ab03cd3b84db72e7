// Package slack sends approval review requests to the configured Slack
// channel. When no webhook is configured, a noop implementation is
// returned so callers never need to special-case the send.
package slack
