package audiogen

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pressline/internal/config"
	"pressline/internal/services"
)

// JobState is a provider-side synthesis job status.
type JobState string

const (
	StatePending   JobState = "pending"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
)

// JobStatus is the result of one poll.
type JobStatus struct {
	TaskID   string   `json:"task_id"`
	State    JobState `json:"state"`
	AudioURL string   `json:"audio_url"`
	Error    string   `json:"error"`
}

// Client talks to the audio synthesis provider.
type Client struct {
	http    *resty.Client
	voiceID string
	timeout time.Duration
	sleeper func(time.Duration)
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

// NewClient builds an audio synthesis client from configuration.
func NewClient(cfg config.AudioGen, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("xi-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	c := &Client{
		http:    client,
		voiceID: cfg.VoiceID,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		sleeper: time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit enqueues a synthesis job for the given script.
func (c *Client) Submit(ctx context.Context, script string) (string, error) {
	var out JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"voice_id": c.voiceID, "text": script}).
		SetResult(&out).
		Post("/speech-jobs")
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "audiogen", "submit job", "", err)
	}
	if resp.IsError() {
		return "", services.Wrap(services.ErrExternal, "audiogen", "submit job", resp.Status(), nil)
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", services.Wrap(services.ErrExternal, "audiogen", "submit job", "provider returned no task id", nil)
	}
	return out.TaskID, nil
}

// Poll fetches the current status of a synthesis job.
func (c *Client) Poll(ctx context.Context, taskID string) (*JobStatus, error) {
	var out JobStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/speech-jobs/" + taskID)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "audiogen", "poll job", taskID, err)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrExternal, "audiogen", "poll job", resp.Status(), nil)
	}
	return &out, nil
}

// Await polls until the job reaches a terminal state or the configured
// timeout elapses.
func (c *Client) Await(ctx context.Context, taskID string) (*JobStatus, error) {
	deadline := time.Now().Add(c.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTimeout, "audiogen", "await job", taskID, err)
		}
		status, err := c.Poll(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch status.State {
		case StateSucceeded:
			return status, nil
		case StateFailed:
			return nil, services.Wrap(services.ErrExternal, "audiogen", "await job", status.Error, nil)
		}
		if time.Now().After(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "audiogen", "await job", taskID, nil)
		}
		c.sleeper(2 * time.Second)
	}
}
