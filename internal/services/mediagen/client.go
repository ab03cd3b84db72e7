package mediagen

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pressline/internal/config"
	"pressline/internal/services"
)

// JobType selects which media artifact a job produces.
type JobType string

const (
	JobFeaturedImage JobType = "featured_image"
	JobVideo         JobType = "video"
	JobSocialImage   JobType = "social_image"
)

// JobSpec describes one generation job.
type JobSpec struct {
	Type        JobType `json:"type"`
	Prompt      string  `json:"prompt"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
}

// JobState is a provider-side job status.
type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateSucceeded  JobState = "succeeded"
	StateFailed     JobState = "failed"
)

// JobStatus is the result of one poll.
type JobStatus struct {
	TaskID    string   `json:"task_id"`
	State     JobState `json:"state"`
	ResultURL string   `json:"result_url"`
	Error     string   `json:"error"`
}

// Client talks to the media generation provider.
type Client struct {
	http         *resty.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	sleeper      func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient builds a media generation client from configuration.
func NewClient(cfg config.MediaGen, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	c := &Client{
		http:         client,
		pollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		pollTimeout:  time.Duration(cfg.PollTimeoutSeconds) * time.Second,
		sleeper:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit enqueues a generation job and returns the provider task id.
func (c *Client) Submit(ctx context.Context, spec JobSpec) (string, error) {
	var out JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(spec).
		SetResult(&out).
		Post("/jobs")
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "mediagen", "submit job", string(spec.Type), err)
	}
	if resp.IsError() {
		return "", services.Wrap(services.ErrExternal, "mediagen", "submit job", resp.Status(), nil)
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", services.Wrap(services.ErrExternal, "mediagen", "submit job", "provider returned no task id", nil)
	}
	return out.TaskID, nil
}

// Poll fetches the current status of a submitted job.
func (c *Client) Poll(ctx context.Context, taskID string) (*JobStatus, error) {
	var out JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/jobs/" + taskID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "mediagen", "poll job", taskID, err)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrExternal, "mediagen", "poll job", resp.Status(), nil)
	}
	return &out, nil
}

// Await polls a job until it reaches a terminal state or the configured
// poll timeout elapses. A timeout is reported as services.ErrTimeout.
func (c *Client) Await(ctx context.Context, taskID string) (*JobStatus, error) {
	deadline := time.Now().Add(c.pollTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTimeout, "mediagen", "await job", taskID, err)
		}
		status, err := c.Poll(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch status.State {
		case StateSucceeded:
			return status, nil
		case StateFailed:
			return nil, services.Wrap(services.ErrExternal, "mediagen", "await job", status.Error, nil)
		}
		if time.Now().After(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "mediagen", "await job", taskID, nil)
		}
		c.sleeper(c.pollInterval)
	}
}
