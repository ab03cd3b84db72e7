package stages

import (
	"context"
	"strings"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/store"
)

// HebrewPublisher flips the approved WordPress draft to published.
type HebrewPublisher struct {
	store  *store.Store
	cfg    *config.Config
	wp     Publisher
	logger *slog.Logger
}

// NewHebrewPublisher constructs the hebrew-publish stage handler.
func NewHebrewPublisher(cfg *config.Config, st *store.Store, logger *slog.Logger, wp Publisher) *HebrewPublisher {
	return &HebrewPublisher{
		store:  st,
		cfg:    cfg,
		wp:     wp,
		logger: logging.NewComponentLogger(logger, "hebrew-publisher"),
	}
}

func (p *HebrewPublisher) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if ex.Content == nil {
		return services.Wrap(services.ErrValidation, "hebrew-publisher", "prepare", "exchange missing content", nil)
	}
	if strings.TrimSpace(ex.Content.BodyHe) == "" {
		return services.Wrap(services.ErrValidation, "hebrew-publisher", "prepare", "content has no hebrew body", nil)
	}
	if ex.Content.WPPostID == 0 {
		return services.Wrap(services.ErrValidation, "hebrew-publisher", "prepare", "content has no wordpress draft", nil)
	}
	return nil
}

func (p *HebrewPublisher) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, p.logger)
	if ex.Content.Status == store.ContentPublished {
		logger.Info("content already published", logging.Int64("wp_post_id", ex.Content.WPPostID))
		return nil
	}
	post, err := p.wp.PublishPost(ctx, ex.Content.WPPostID)
	if err != nil {
		return services.Wrap(services.ErrExternal, "hebrew-publisher", "execute", "publish wordpress post", err)
	}
	ex.Content.Status = store.ContentPublished
	if post.Link != "" {
		ex.Content.WPPostURL = post.Link
	}
	logger.Info("hebrew article published",
		logging.Int64("wp_post_id", ex.Content.WPPostID),
		logging.String("link", ex.Content.WPPostURL))
	return nil
}

func (p *HebrewPublisher) HealthCheck(ctx context.Context) stage.Health {
	if p.wp == nil {
		return stage.Unhealthy(pipeline.StageHebrewPublish, "wordpress client unavailable")
	}
	return stage.Healthy(pipeline.StageHebrewPublish)
}
