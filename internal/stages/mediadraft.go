package stages

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/services/mediagen"
	"pressline/internal/stage"
	"pressline/internal/store"
)

// MediaDrafter creates the WordPress draft for the Hebrew article and
// attaches generated visual assets. Asset generation failures degrade the
// draft but do not fail the stage; a missing draft does.
type MediaDrafter struct {
	store  *store.Store
	cfg    *config.Config
	wp     Publisher
	media  MediaGenerator
	logger *slog.Logger
}

// NewMediaDrafter constructs the wp-draft-video stage handler.
func NewMediaDrafter(cfg *config.Config, st *store.Store, logger *slog.Logger, wp Publisher, media MediaGenerator) *MediaDrafter {
	return &MediaDrafter{
		store:  st,
		cfg:    cfg,
		wp:     wp,
		media:  media,
		logger: logging.NewComponentLogger(logger, "media-drafter"),
	}
}

func (m *MediaDrafter) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if ex.Content == nil || strings.TrimSpace(ex.Content.BodyHe) == "" {
		return services.Wrap(services.ErrValidation, "media-drafter", "prepare", "exchange missing hebrew draft body", nil)
	}
	if ex.Topic == nil {
		return services.Wrap(services.ErrValidation, "media-drafter", "prepare", "exchange missing topic", nil)
	}
	return nil
}

func (m *MediaDrafter) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, m.logger)
	if ex.Content.WPPostID == 0 {
		title := ex.Topic.TitleHe
		if title == "" {
			title = ex.Topic.TitleEn
		}
		post, err := m.wp.CreateDraftPost(ctx, title, ex.Content.BodyHe, "hebrew")
		if err != nil {
			return services.Wrap(services.ErrExternal, "media-drafter", "execute", "create wordpress draft", err)
		}
		ex.Content.WPPostID = post.ID
		ex.Content.WPPostURL = post.Link
		logger.Info("wordpress draft created", logging.Int64("wp_post_id", post.ID), logging.String("link", post.Link))
	} else {
		logger.Info("wordpress draft already exists", logging.Int64("wp_post_id", ex.Content.WPPostID))
	}

	m.attachAsset(ctx, ex, mediagen.JobFeaturedImage, &ex.Content.FeaturedImageURL)
	m.attachAsset(ctx, ex, mediagen.JobVideo, &ex.Content.VideoURL)

	ex.Content.Status = store.ContentReady
	return nil
}

// attachAsset generates one visual asset and records its URL. Failures
// are logged and left for the healer or a manual retry.
func (m *MediaDrafter) attachAsset(ctx context.Context, ex *stage.Exchange, jobType mediagen.JobType, target *string) {
	logger := logging.WithContext(ctx, m.logger)
	if *target != "" {
		return
	}
	if m.media == nil {
		logger.Warn("media generation not configured, skipping asset", logging.String("job_type", string(jobType)))
		return
	}
	prompt := fmt.Sprintf("Editorial %s for the article %q", jobType, ex.Topic.TitleEn)
	taskID, err := m.media.Submit(ctx, mediagen.JobSpec{Type: jobType, Prompt: prompt})
	if err != nil {
		logger.Warn("media job submission failed", logging.String("job_type", string(jobType)), logging.Error(err))
		return
	}
	status, err := m.media.Await(ctx, taskID)
	if err != nil {
		logger.Warn("media job did not finish", logging.String("job_type", string(jobType)), logging.Error(err))
		return
	}
	*target = status.ResultURL
	logger.Info("media asset attached", logging.String("job_type", string(jobType)), logging.String("url", status.ResultURL))
}

func (m *MediaDrafter) HealthCheck(ctx context.Context) stage.Health {
	if m.wp == nil {
		return stage.Unhealthy(pipeline.StageWPDraftVideo, "wordpress client unavailable")
	}
	return stage.Healthy(pipeline.StageWPDraftVideo)
}
