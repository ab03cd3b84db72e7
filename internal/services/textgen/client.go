package textgen

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pressline/internal/config"
	"pressline/internal/services"
)

const (
	defaultRetryAttempts = 3
	defaultRetryWait     = time.Second
	defaultRetryMaxWait  = 10 * time.Second
)

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	http  *resty.Client
	url   string
	model string
}

// NewClient builds a text generation client from configuration.
func NewClient(cfg config.TextGen) *Client {
	client := resty.New().
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(defaultRetryAttempts).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == 429 || resp.StatusCode() >= 500
		})
	return &Client{http: client, url: cfg.BaseURL, model: cfg.Model}
}

// Configured reports whether the client has credentials to work with.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.url) != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a system/user prompt pair and returns the completion text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages}).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "textgen", "chat completion", "", err)
	}
	if resp.IsError() {
		detail := resp.Status()
		if out.Error != nil && out.Error.Message != "" {
			detail = out.Error.Message
		}
		return "", services.Wrap(services.ErrExternal, "textgen", "chat completion", detail, nil)
	}
	if len(out.Choices) == 0 {
		return "", services.Wrap(services.ErrExternal, "textgen", "chat completion", "empty response", nil)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
