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
	"pressline/internal/textutil"
)

const seoRewriteSystem = "You are an SEO editor for Hebrew publications. Improve the article so the " +
	"target keywords appear naturally and the body reads well. Respond with the revised article only."

// SEOAuditor rescoring stage. When the exchange carries a single content
// piece it audits and, if the text generator is available, rewrites
// under-performing bodies. On a bare exchange it sweeps recent content.
type SEOAuditor struct {
	store   *store.Store
	cfg     *config.Config
	textgen TextGenerator
	logger  *slog.Logger
}

// NewSEOAuditor constructs the seo-audit stage handler.
func NewSEOAuditor(cfg *config.Config, st *store.Store, logger *slog.Logger, textgen TextGenerator) *SEOAuditor {
	return &SEOAuditor{
		store:   st,
		cfg:     cfg,
		textgen: textgen,
		logger:  logging.NewComponentLogger(logger, "seo-auditor"),
	}
}

func (a *SEOAuditor) Prepare(ctx context.Context, ex *stage.Exchange) error {
	return nil
}

func (a *SEOAuditor) Execute(ctx context.Context, ex *stage.Exchange) error {
	if ex.Content != nil {
		return a.auditPiece(ctx, ex.Content)
	}
	recent, err := a.store.RecentContent(ctx, a.cfg.Healer.ScanLimit)
	if err != nil {
		return services.Wrap(services.ErrTransient, "seo-auditor", "execute", "list recent content", err)
	}
	for _, piece := range recent {
		if strings.TrimSpace(piece.BodyHe) == "" {
			continue
		}
		if err := a.auditPiece(ctx, piece); err != nil {
			return err
		}
		if err := a.store.UpdateContentPiece(ctx, piece); err != nil {
			return services.Wrap(services.ErrTransient, "seo-auditor", "execute", "persist audited content", err)
		}
	}
	return nil
}

func (a *SEOAuditor) auditPiece(ctx context.Context, piece *store.ContentPiece) error {
	logger := logging.WithContext(ctx, a.logger)
	keywords := a.keywordsFor(ctx, piece)
	score := textutil.SEOScore(piece.BodyHe, keywords)
	threshold := a.cfg.Healer.SEOScoreThreshold
	if score < threshold && a.textgen != nil && a.textgen.Configured() {
		prompt := "Target keywords: " + strings.Join(keywords, ", ") + "\n\n" + piece.BodyHe
		revised, err := a.textgen.Generate(ctx, seoRewriteSystem, prompt)
		if err != nil {
			return services.Wrap(services.ErrExternal, "seo-auditor", "audit", "rewrite under-performing body", err)
		}
		revised = strings.TrimSpace(revised)
		if textutil.HasHebrew(revised) {
			piece.BodyHe = revised
			piece.WordCount = textutil.WordCount(revised)
			score = textutil.SEOScore(revised, keywords)
		}
	}
	previous := piece.SEOScore
	piece.SEOScore = score
	if score < threshold {
		logger.Warn("content below seo threshold",
			logging.Int64("content_id", piece.ID),
			logging.Int("seo_score", score),
			logging.Int("threshold", threshold))
	} else if previous != score {
		logger.Info("seo score updated",
			logging.Int64("content_id", piece.ID),
			logging.Int("seo_score", score))
	}
	return nil
}

func (a *SEOAuditor) keywordsFor(ctx context.Context, piece *store.ContentPiece) []string {
	if piece.TopicID == 0 {
		return nil
	}
	topic, err := a.store.GetTopic(ctx, piece.TopicID)
	if err != nil || topic == nil {
		return nil
	}
	return topic.Keywords
}

func (a *SEOAuditor) HealthCheck(ctx context.Context) stage.Health {
	if a.store == nil {
		return stage.Unhealthy(pipeline.StageSEOAudit, "store unavailable")
	}
	return stage.Healthy(pipeline.StageSEOAudit)
}
