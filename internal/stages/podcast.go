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

const podcastScriptSystem = "You turn published Hebrew articles into conversational podcast scripts in " +
	"Hebrew. Keep the script under five minutes of speech. Respond with the script only."

// PodcastProducer turns the most recent published article into narrated
// audio via the speech synthesis provider.
type PodcastProducer struct {
	store   *store.Store
	cfg     *config.Config
	textgen TextGenerator
	audio   AudioGenerator
	logger  *slog.Logger
}

// NewPodcastProducer constructs the podcast-production stage handler.
func NewPodcastProducer(cfg *config.Config, st *store.Store, logger *slog.Logger, textgen TextGenerator, audio AudioGenerator) *PodcastProducer {
	return &PodcastProducer{
		store:   st,
		cfg:     cfg,
		textgen: textgen,
		audio:   audio,
		logger:  logging.NewComponentLogger(logger, "podcast-producer"),
	}
}

func (p *PodcastProducer) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if p.audio == nil {
		return services.Wrap(services.ErrConfiguration, "podcast-producer", "prepare", "audio synthesis is not configured", nil)
	}
	if ex.Content == nil {
		piece, err := p.latestPublished(ctx)
		if err != nil {
			return err
		}
		ex.Content = piece
		if ex.Run != nil {
			ex.Run.ContentID = piece.ID
			ex.Run.TopicID = piece.TopicID
		}
	}
	if strings.TrimSpace(ex.Content.BodyHe) == "" {
		return services.Wrap(services.ErrValidation, "podcast-producer", "prepare", "content has no hebrew body", nil)
	}
	return nil
}

func (p *PodcastProducer) latestPublished(ctx context.Context) (*store.ContentPiece, error) {
	recent, err := p.store.RecentContent(ctx, 20)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "podcast-producer", "prepare", "list recent content", err)
	}
	for _, piece := range recent {
		if piece.Status == store.ContentPublished && piece.AudioURL == "" {
			return piece, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "podcast-producer", "prepare", "no published content awaiting a podcast", nil)
}

func (p *PodcastProducer) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, p.logger)
	if ex.Content.AudioURL != "" {
		logger.Info("podcast audio already present", logging.Int64("content_id", ex.Content.ID))
		return nil
	}
	script := ex.Content.BodyHe
	if p.textgen != nil && p.textgen.Configured() {
		generated, err := p.textgen.Generate(ctx, podcastScriptSystem, ex.Content.BodyHe)
		if err != nil {
			return services.Wrap(services.ErrExternal, "podcast-producer", "execute", "generate podcast script", err)
		}
		if strings.TrimSpace(generated) != "" {
			script = strings.TrimSpace(generated)
		}
	}
	taskID, err := p.audio.Submit(ctx, script)
	if err != nil {
		return services.Wrap(services.ErrExternal, "podcast-producer", "execute", "submit speech job", err)
	}
	status, err := p.audio.Await(ctx, taskID)
	if err != nil {
		return services.Wrap(services.ErrExternal, "podcast-producer", "execute", "await speech job", err)
	}
	ex.Content.AudioURL = status.AudioURL
	logger.Info("podcast audio produced",
		logging.Int64("content_id", ex.Content.ID),
		logging.String("audio_url", status.AudioURL))
	return nil
}

func (p *PodcastProducer) HealthCheck(ctx context.Context) stage.Health {
	if p.audio == nil {
		return stage.Unhealthy(pipeline.StagePodcast, "audio synthesis not configured")
	}
	return stage.Healthy(pipeline.StagePodcast)
}
