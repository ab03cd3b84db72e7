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
	"pressline/internal/stage"
	"pressline/internal/store"
	"pressline/internal/textutil"
)

const hebrewArticleSystem = "You are a senior Hebrew editorial writer. Write complete, publication-ready " +
	"articles in Hebrew with a short headline on the first line followed by the body. Do not add any English."

// HebrewGenerator drafts the Hebrew article body for the run's topic and
// creates the content piece the rest of the pipeline operates on.
type HebrewGenerator struct {
	store   *store.Store
	cfg     *config.Config
	textgen TextGenerator
	logger  *slog.Logger
}

// NewHebrewGenerator constructs the Hebrew generation stage handler.
func NewHebrewGenerator(cfg *config.Config, st *store.Store, logger *slog.Logger, textgen TextGenerator) *HebrewGenerator {
	return &HebrewGenerator{
		store:   st,
		cfg:     cfg,
		textgen: textgen,
		logger:  logging.NewComponentLogger(logger, "hebrew-generator"),
	}
}

func (g *HebrewGenerator) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if ex.Topic == nil {
		return services.Wrap(services.ErrValidation, "hebrew-generator", "prepare", "exchange missing topic", nil)
	}
	if g.textgen == nil || !g.textgen.Configured() {
		return services.Wrap(services.ErrConfiguration, "hebrew-generator", "prepare", "text generation is not configured", nil)
	}
	return nil
}

func (g *HebrewGenerator) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, g.logger)
	if ex.Content != nil && strings.TrimSpace(ex.Content.BodyHe) != "" {
		logger.Info("hebrew body already present, skipping generation", logging.Int64("content_id", ex.Content.ID))
		return nil
	}
	prompt := fmt.Sprintf("Write an article about %q.", ex.Topic.TitleHe)
	if ex.Topic.TitleHe == "" {
		prompt = fmt.Sprintf("Write an article in Hebrew about %q.", ex.Topic.TitleEn)
	}
	if len(ex.Topic.Keywords) > 0 {
		prompt += " Work these keywords in naturally: " + strings.Join(ex.Topic.Keywords, ", ") + "."
	}
	body, err := g.textgen.Generate(ctx, hebrewArticleSystem, prompt)
	if err != nil {
		return services.Wrap(services.ErrExternal, "hebrew-generator", "execute", "generate hebrew article", err)
	}
	body = strings.TrimSpace(body)
	if !textutil.HasHebrew(body) {
		return services.Wrap(services.ErrExternal, "hebrew-generator", "execute", "generated body contains no hebrew text", nil)
	}
	if ex.Content == nil {
		piece, err := g.store.CreateContentPiece(ctx, &store.ContentPiece{
			TopicID: ex.Topic.ID,
			Status:  store.ContentDraft,
		})
		if err != nil {
			return services.Wrap(services.ErrTransient, "hebrew-generator", "execute", "create content piece", err)
		}
		ex.Content = piece
	}
	ex.Content.BodyHe = body
	ex.Content.WordCount = textutil.WordCount(body)
	ex.Content.SEOScore = textutil.SEOScore(body, ex.Topic.Keywords)
	ex.Content.Status = store.ContentDraft
	if ex.Run != nil {
		ex.Run.ContentID = ex.Content.ID
	}
	logger.Info("hebrew article drafted",
		logging.Int64("content_id", ex.Content.ID),
		logging.Int("word_count", ex.Content.WordCount),
		logging.Int("seo_score", ex.Content.SEOScore))
	return nil
}

func (g *HebrewGenerator) HealthCheck(ctx context.Context) stage.Health {
	if g.textgen == nil || !g.textgen.Configured() {
		return stage.Unhealthy(pipeline.StageHebrewGeneration, "text generation not configured")
	}
	return stage.Healthy(pipeline.StageHebrewGeneration)
}
