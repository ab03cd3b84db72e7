package wordpress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"pressline/internal/config"
	"pressline/internal/services"
)

// Post is the subset of a WordPress post the pipeline cares about.
type Post struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Link   string `json:"link"`
}

type postRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client talks to a single WordPress site.
type Client struct {
	http *resty.Client
}

// NewClient builds a WordPress client from configuration.
func NewClient(cfg config.WordPress) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL+"/wp-json/wp/v2").
		SetBasicAuth(cfg.Username, cfg.AppPassword).
		SetHeader("Content-Type", "application/json").
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &Client{http: client}
}

// CreateDraftPost creates a draft post and returns its id and link.
func (c *Client) CreateDraftPost(ctx context.Context, title, content, category string) (*Post, error) {
	var post Post
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(postRequest{Title: title, Content: content, Status: "draft", Category: category}).
		SetResult(&post).
		SetError(&errBody).
		Post("/posts")
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "create draft", "", err)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "create draft", apiMessage(resp.StatusCode(), errBody), nil)
	}
	return &post, nil
}

// PublishPost flips an existing post to published. Publishing an
// already-published post is a no-op on the WordPress side.
func (c *Client) PublishPost(ctx context.Context, postID int64) (*Post, error) {
	var post Post
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"status": "publish"}).
		SetResult(&post).
		SetError(&errBody).
		Post(fmt.Sprintf("/posts/%d", postID))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "publish post", "", err)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "publish post", apiMessage(resp.StatusCode(), errBody), nil)
	}
	return &post, nil
}

// GetPost fetches a post by id.
func (c *Client) GetPost(ctx context.Context, postID int64) (*Post, error) {
	var post Post
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&post).
		SetError(&errBody).
		Get(fmt.Sprintf("/posts/%d", postID))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "get post", "", err)
	}
	if resp.StatusCode() == 404 {
		return nil, services.Wrap(services.ErrNotFound, "wordpress", "get post", fmt.Sprintf("post %d", postID), nil)
	}
	if resp.IsError() {
		return nil, services.Wrap(services.ErrExternal, "wordpress", "get post", apiMessage(resp.StatusCode(), errBody), nil)
	}
	return &post, nil
}

func apiMessage(status int, body apiError) string {
	if body.Message != "" {
		return fmt.Sprintf("status %d: %s", status, body.Message)
	}
	return fmt.Sprintf("status %d", status)
}
