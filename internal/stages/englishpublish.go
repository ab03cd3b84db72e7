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
	"pressline/internal/textutil"
)

const translationSystem = "You translate Hebrew editorial content into natural, idiomatic English. " +
	"Preserve the structure and tone. Respond with the translation only."

const socialSystem = "You write short social media teasers in English. Respond with one teaser of " +
	"at most 240 characters, no hashtags."

// EnglishPublisher translates the Hebrew article, publishes the English
// edition, and prepares the social teaser with its image.
type EnglishPublisher struct {
	store   *store.Store
	cfg     *config.Config
	wp      Publisher
	textgen TextGenerator
	media   MediaGenerator
	logger  *slog.Logger
}

// NewEnglishPublisher constructs the english-publish-social stage handler.
func NewEnglishPublisher(cfg *config.Config, st *store.Store, logger *slog.Logger, wp Publisher, textgen TextGenerator, media MediaGenerator) *EnglishPublisher {
	return &EnglishPublisher{
		store:   st,
		cfg:     cfg,
		wp:      wp,
		textgen: textgen,
		media:   media,
		logger:  logging.NewComponentLogger(logger, "english-publisher"),
	}
}

func (p *EnglishPublisher) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if ex.Content == nil || strings.TrimSpace(ex.Content.BodyHe) == "" {
		return services.Wrap(services.ErrValidation, "english-publisher", "prepare", "exchange missing hebrew body", nil)
	}
	if ex.Topic == nil {
		return services.Wrap(services.ErrValidation, "english-publisher", "prepare", "exchange missing topic", nil)
	}
	return nil
}

func (p *EnglishPublisher) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, p.logger)
	if err := p.ensureTranslation(ctx, ex); err != nil {
		return err
	}
	if ex.Content.EnPostID == 0 {
		title := ex.Topic.TitleEn
		if title == "" {
			title = textutil.TitleFromKeywords(ex.Topic.Keywords)
		}
		draft, err := p.wp.CreateDraftPost(ctx, title, ex.Content.BodyEn, "english")
		if err != nil {
			return services.Wrap(services.ErrExternal, "english-publisher", "execute", "create english draft", err)
		}
		post, err := p.wp.PublishPost(ctx, draft.ID)
		if err != nil {
			return services.Wrap(services.ErrExternal, "english-publisher", "execute", "publish english post", err)
		}
		ex.Content.EnPostID = post.ID
		logger.Info("english edition published", logging.Int64("en_post_id", post.ID), logging.String("link", post.Link))
	}
	p.attachSocialImage(ctx, ex)
	return nil
}

// ensureTranslation fills BodyEn from BodyHe when missing. The healer
// re-enters here for the missing-translation defect.
func (p *EnglishPublisher) ensureTranslation(ctx context.Context, ex *stage.Exchange) error {
	if strings.TrimSpace(ex.Content.BodyEn) != "" {
		return nil
	}
	if p.textgen == nil || !p.textgen.Configured() {
		return services.Wrap(services.ErrConfiguration, "english-publisher", "translate", "text generation is not configured", nil)
	}
	body, err := p.textgen.Generate(ctx, translationSystem, ex.Content.BodyHe)
	if err != nil {
		return services.Wrap(services.ErrExternal, "english-publisher", "translate", "translate article body", err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return services.Wrap(services.ErrExternal, "english-publisher", "translate", "translation came back empty", nil)
	}
	ex.Content.BodyEn = body
	if ex.Topic != nil && ex.Topic.TitleEn == "" && ex.Topic.TitleHe != "" {
		title, err := p.textgen.Generate(ctx, translationSystem, ex.Topic.TitleHe)
		if err == nil && strings.TrimSpace(title) != "" {
			ex.Topic.TitleEn = strings.TrimSpace(title)
		}
	}
	return nil
}

func (p *EnglishPublisher) attachSocialImage(ctx context.Context, ex *stage.Exchange) {
	logger := logging.WithContext(ctx, p.logger)
	if ex.Content.SocialImageURL != "" || p.media == nil {
		return
	}
	teaser := textutil.Excerpt(ex.Content.BodyEn, 24)
	if p.textgen != nil && p.textgen.Configured() {
		if generated, err := p.textgen.Generate(ctx, socialSystem, ex.Content.BodyEn); err == nil {
			teaser = strings.TrimSpace(generated)
		}
	}
	spec := mediagen.JobSpec{
		Type:        mediagen.JobSocialImage,
		Prompt:      fmt.Sprintf("Social card for: %s", teaser),
		AspectRatio: "1:1",
	}
	taskID, err := p.media.Submit(ctx, spec)
	if err != nil {
		logger.Warn("social image submission failed", logging.Error(err))
		return
	}
	status, err := p.media.Await(ctx, taskID)
	if err != nil {
		logger.Warn("social image job did not finish", logging.Error(err))
		return
	}
	ex.Content.SocialImageURL = status.ResultURL
	logger.Info("social image attached", logging.String("url", status.ResultURL))
}

func (p *EnglishPublisher) HealthCheck(ctx context.Context) stage.Health {
	if p.wp == nil {
		return stage.Unhealthy(pipeline.StageEnglishPublish, "wordpress client unavailable")
	}
	if p.textgen == nil || !p.textgen.Configured() {
		return stage.Unhealthy(pipeline.StageEnglishPublish, "text generation not configured")
	}
	return stage.Healthy(pipeline.StageEnglishPublish)
}
