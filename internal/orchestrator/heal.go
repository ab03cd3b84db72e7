package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pressline/internal/logging"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/store"
)

// DefectPresent reports whether a content piece currently exhibits the
// named defect. threshold is the minimum acceptable SEO score and
// maxDraftAge the window after which drafts count as stuck.
func DefectPresent(piece *store.ContentPiece, defect pipeline.Defect, threshold int, maxDraftAge time.Duration, now time.Time) bool {
	if piece == nil {
		return false
	}
	switch defect {
	case pipeline.DefectMissingTranslation:
		return piece.Status == store.ContentPublished &&
			strings.TrimSpace(piece.BodyHe) != "" &&
			strings.TrimSpace(piece.BodyEn) == ""
	case pipeline.DefectLowSEO:
		return strings.TrimSpace(piece.BodyHe) != "" && piece.SEOScore < threshold
	case pipeline.DefectStuckDraft:
		return piece.Status == store.ContentDraft && now.Sub(piece.UpdatedAt) > maxDraftAge
	default:
		return false
	}
}

// Heal inspects a content piece for every known defect and remediates
// the first one present. Reports already-ok when the record is clean.
func (o *Orchestrator) Heal(ctx context.Context, contentID int64) (pipeline.HealOutcome, error) {
	for _, defect := range pipeline.AllDefects() {
		outcome, err := o.HealDefect(ctx, contentID, defect)
		if outcome == pipeline.HealAlreadyOK && err == nil {
			continue
		}
		return outcome, err
	}
	return pipeline.HealAlreadyOK, nil
}

// HealDefect remediates one named defect on one content piece by
// re-entering the stage executor that produces the missing artifact.
// Healing is idempotent: a record without the defect reports already-ok
// and nothing external is re-invoked.
func (o *Orchestrator) HealDefect(ctx context.Context, contentID int64, defect pipeline.Defect) (pipeline.HealOutcome, error) {
	logger := logging.WithContext(ctx, o.logger)
	piece, err := o.store.GetContentPiece(ctx, contentID)
	if err != nil {
		return pipeline.HealFailed, services.Wrap(services.ErrTransient, "orchestrator", "heal", "load content", err)
	}
	if piece == nil {
		return pipeline.HealFailed, services.Wrap(services.ErrNotFound, "orchestrator", "heal",
			fmt.Sprintf("content %d not found", contentID), nil)
	}
	if !DefectPresent(piece, defect, o.cfg.Healer.SEOScoreThreshold, o.maxDraftAge(), o.now().UTC()) {
		return pipeline.HealAlreadyOK, nil
	}
	ex := &stage.Exchange{Content: piece}
	if piece.TopicID != 0 {
		topic, err := o.store.GetTopic(ctx, piece.TopicID)
		if err != nil {
			return pipeline.HealFailed, services.Wrap(services.ErrTransient, "orchestrator", "heal", "load topic", err)
		}
		ex.Topic = topic
		ctx = services.WithTopicID(ctx, piece.TopicID)
	}
	stageName, handler := o.healHandler(defect, piece)
	if handler == nil {
		return pipeline.HealFailed, services.Wrap(services.ErrConfiguration, "orchestrator", "heal",
			fmt.Sprintf("no executor registered for stage %s", stageName), nil)
	}
	ctx = services.WithStage(ctx, stageName)
	if err := o.executeStage(ctx, handler, ex); err != nil {
		o.appendHealLog(ctx, piece, store.LogError, fmt.Sprintf("healing %s via %s failed: %s", defect, stageName, services.Message(err)))
		return pipeline.HealFailed, err
	}
	if err := o.store.UpdateContentPiece(ctx, piece); err != nil {
		return pipeline.HealFailed, services.Wrap(services.ErrTransient, "orchestrator", "heal", "persist healed content", err)
	}
	if ex.Topic != nil {
		if err := o.store.UpdateTopic(ctx, ex.Topic); err != nil {
			return pipeline.HealFailed, services.Wrap(services.ErrTransient, "orchestrator", "heal", "persist topic", err)
		}
	}
	o.appendHealLog(ctx, piece, store.LogSuccess, fmt.Sprintf("healed %s via %s", defect, stageName))
	logger.Info("defect healed",
		logging.Int64("content_id", piece.ID),
		logging.String("defect", string(defect)),
		logging.String("stage", stageName))
	return pipeline.HealApplied, nil
}

// healHandler maps a defect to the single stage executor that produces
// the missing artifact. A stuck draft without a WordPress post still
// needs its draft created, so it routes to the drafting stage instead of
// straight to publish.
func (o *Orchestrator) healHandler(defect pipeline.Defect, piece *store.ContentPiece) (string, stage.Handler) {
	switch defect {
	case pipeline.DefectMissingTranslation:
		return pipeline.StageEnglishPublish, o.handlers[pipeline.StageEnglishPublish]
	case pipeline.DefectLowSEO:
		return pipeline.StageSEOAudit, o.handlers[pipeline.StageSEOAudit]
	case pipeline.DefectStuckDraft:
		if piece.WPPostID == 0 {
			return pipeline.StageWPDraftVideo, o.handlers[pipeline.StageWPDraftVideo]
		}
		return pipeline.StageHebrewPublish, o.handlers[pipeline.StageHebrewPublish]
	default:
		return string(defect), nil
	}
}

func (o *Orchestrator) maxDraftAge() time.Duration {
	hours := o.cfg.Healer.StuckDraftHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func (o *Orchestrator) appendHealLog(ctx context.Context, piece *store.ContentPiece, level store.LogLevel, message string) {
	entry := &store.LogEntry{TopicID: piece.TopicID, Level: level, Message: message}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		logging.WithContext(ctx, o.logger).Warn("ledger append failed", logging.Error(err))
	}
}
