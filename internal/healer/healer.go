// Package healer scans the content ledger for known data defects and
// drives targeted remediation through the orchestrator. Scanning never
// mutates; healing claims an exclusive per-record marker first so two
// healers cannot touch the same record concurrently.
package healer

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/store"
)

// Finding describes one defect detected on one content piece.
type Finding struct {
	ContentID int64
	TopicID   int64
	Defect    pipeline.Defect
}

// Result describes one remediation attempt.
type Result struct {
	ContentID int64
	Defect    pipeline.Defect
	Outcome   pipeline.HealOutcome
	Error     string
}

// Report summarizes one scan or heal pass.
type Report struct {
	Scanned  int
	Findings []Finding
	Results  []Result
}

// Healer detects data defects and remediates them one record at a time.
type Healer struct {
	cfg    *config.Config
	store  *store.Store
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a healer over the shared store and orchestrator.
func New(cfg *config.Config, st *store.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *Healer {
	return &Healer{
		cfg:    cfg,
		store:  st,
		orch:   orch,
		logger: logging.NewComponentLogger(logger, "healer"),
		now:    time.Now,
	}
}

// Scan inspects recent content for the given defects, or every known
// defect when none are named. Read-only: a scan pass never changes any
// record.
func (h *Healer) Scan(ctx context.Context, limit int, defects ...pipeline.Defect) (*Report, error) {
	if limit <= 0 {
		limit = h.cfg.Healer.ScanLimit
	}
	if len(defects) == 0 {
		defects = pipeline.AllDefects()
	}
	recent, err := h.store.RecentContent(ctx, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "healer", "scan", "list recent content", err)
	}
	report := &Report{Scanned: len(recent)}
	now := h.now().UTC()
	maxDraftAge := time.Duration(h.cfg.Healer.StuckDraftHours) * time.Hour
	for _, piece := range recent {
		for _, defect := range defects {
			if orchestrator.DefectPresent(piece, defect, h.cfg.Healer.SEOScoreThreshold, maxDraftAge, now) {
				report.Findings = append(report.Findings, Finding{
					ContentID: piece.ID,
					TopicID:   piece.TopicID,
					Defect:    defect,
				})
			}
		}
	}
	logging.WithContext(ctx, h.logger).Info("scan finished",
		logging.Int("scanned", report.Scanned),
		logging.Int("findings", len(report.Findings)))
	return report, nil
}

// HealAll scans and then remediates every finding. Naming defects
// restricts the sweep to those defect classes. Each record is healed
// under its own marker and failures on one record never stop the pass.
func (h *Healer) HealAll(ctx context.Context, limit int, defects ...pipeline.Defect) (*Report, error) {
	report, err := h.Scan(ctx, limit, defects...)
	if err != nil {
		return nil, err
	}
	for _, finding := range report.Findings {
		report.Results = append(report.Results, h.healFinding(ctx, finding))
	}
	return report, nil
}

// HealContent remediates one content piece across all defects.
func (h *Healer) HealContent(ctx context.Context, contentID int64) (Result, error) {
	result := h.heal(ctx, contentID, func(ctx context.Context) (pipeline.HealOutcome, error) {
		return h.orch.Heal(ctx, contentID)
	})
	result.Defect = ""
	if result.Outcome == pipeline.HealFailed && result.Error != "" {
		return result, fmt.Errorf("heal content %d: %s", contentID, result.Error)
	}
	return result, nil
}

func (h *Healer) healFinding(ctx context.Context, finding Finding) Result {
	result := h.heal(ctx, finding.ContentID, func(ctx context.Context) (pipeline.HealOutcome, error) {
		return h.orch.HealDefect(ctx, finding.ContentID, finding.Defect)
	})
	result.Defect = finding.Defect
	return result
}

// heal claims the exclusive healing marker, runs the remediation, and
// releases the marker on every path out.
func (h *Healer) heal(ctx context.Context, contentID int64, remediate func(context.Context) (pipeline.HealOutcome, error)) Result {
	logger := logging.WithContext(ctx, h.logger)
	result := Result{ContentID: contentID}
	acquired, err := h.store.AcquireHealing(ctx, contentID)
	if err != nil {
		result.Outcome = pipeline.HealFailed
		result.Error = services.Message(err)
		return result
	}
	if !acquired {
		logger.Info("content already being healed", logging.Int64("content_id", contentID))
		result.Outcome = pipeline.HealSkipped
		return result
	}
	defer func() {
		if err := h.store.ReleaseHealing(ctx, contentID); err != nil {
			logger.Warn("healing marker release failed",
				logging.Int64("content_id", contentID),
				logging.Error(err))
		}
	}()
	outcome, err := remediate(ctx)
	result.Outcome = outcome
	if err != nil {
		result.Error = services.Message(err)
		logger.Warn("remediation failed",
			logging.Int64("content_id", contentID),
			logging.Error(err))
	}
	return result
}
