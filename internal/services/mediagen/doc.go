// Package mediagen wraps the asynchronous image/video generation API.
// Jobs are submitted, then polled to terminal status; the pipeline
// treats the provider as a black box with eventual success, failure, or
// timeout.
package mediagen
