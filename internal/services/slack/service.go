package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pressline/internal/config"
)

const userAgent = "Pressline/0.1.0"

// ApprovalRequest is the rendering of a review request posted to the channel.
type ApprovalRequest struct {
	ApprovalID string
	Title      string
	Summary    string
	PreviewURL string
}

// Service defines the messaging surface exposed to the approval gate.
type Service interface {
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) error
}

// NewService builds a Slack sender backed by an incoming webhook when
// configured. When no webhook URL is configured, a noop implementation
// is returned.
func NewService(cfg *config.Config) Service {
	webhook := strings.TrimSpace(cfg.Slack.WebhookURL)
	if webhook == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Slack.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		webhook: webhook,
		channel: strings.TrimSpace(cfg.Slack.Channel),
		client:  &http.Client{Timeout: timeout},
	}
}

type webhookService struct {
	webhook string
	channel string
	client  *http.Client
}

type message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (s *webhookService) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	var builder strings.Builder
	builder.WriteString("📝 Review requested: ")
	builder.WriteString(strings.TrimSpace(req.Title))
	if summary := strings.TrimSpace(req.Summary); summary != "" {
		builder.WriteString("\n")
		builder.WriteString(summary)
	}
	if preview := strings.TrimSpace(req.PreviewURL); preview != "" {
		builder.WriteString("\nPreview: ")
		builder.WriteString(preview)
	}
	builder.WriteString("\nApproval ID: ")
	builder.WriteString(req.ApprovalID)

	return s.send(ctx, message{Channel: s.channel, Text: builder.String()})
}

func (s *webhookService) send(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) SendApprovalRequest(context.Context, ApprovalRequest) error { return nil }
