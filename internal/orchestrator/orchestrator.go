// Package orchestrator drives pipeline runs through their fixed stage
// topologies, records every transition in the run ledger, and hosts the
// targeted remediation entry points used by the healer.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/store"
)

// ApprovalRequester is the surface the orchestrator needs from the
// approval gate. The gate lives in its own package and calls back into
// the orchestrator on resolution, so the dependency here is an interface.
type ApprovalRequester interface {
	RequestContentReview(ctx context.Context, run *store.PipelineRun, topic *store.Topic, content *store.ContentPiece) (*store.Approval, error)
}

// Handlers binds a stage executor to every stage name the topologies use.
type Handlers struct {
	TopicSelection   stage.Handler
	HebrewGeneration stage.Handler
	WPDraftVideo     stage.Handler
	HebrewPublish    stage.Handler
	EnglishPublish   stage.Handler
	Podcast          stage.Handler
	SEOAudit         stage.Handler
}

func (h Handlers) byStage() map[string]stage.Handler {
	return map[string]stage.Handler{
		pipeline.StageTopicSelection:   h.TopicSelection,
		pipeline.StageHebrewGeneration: h.HebrewGeneration,
		pipeline.StageWPDraftVideo:     h.WPDraftVideo,
		pipeline.StageHebrewPublish:    h.HebrewPublish,
		pipeline.StageEnglishPublish:   h.EnglishPublish,
		pipeline.StagePodcast:          h.Podcast,
		pipeline.StageSEOAudit:         h.SEOAudit,
	}
}

// Orchestrator owns run state transitions. All run mutation flows
// through here; stage executors only touch the records on the exchange.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	handlers map[string]stage.Handler
	gate     ApprovalRequester
	now      func() time.Time
}

// New constructs an orchestrator over the given stage handlers.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, handlers Handlers) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		handlers: handlers.byStage(),
		now:      time.Now,
	}
}

// SetGate wires the approval gate after construction. The gate holds a
// reference back to the orchestrator, so wiring happens in two steps.
func (o *Orchestrator) SetGate(gate ApprovalRequester) {
	o.gate = gate
}

// Run creates a run of the given kind and drives it until it completes,
// suspends at a gate, or fails. topicID may be zero for kinds that pick
// or derive their subject during execution.
func (o *Orchestrator) Run(ctx context.Context, kind pipeline.Kind, trigger store.TriggerType, topicID int64) (string, error) {
	if !pipeline.ContainsStage(kind, pipeline.InitialStage(kind)) {
		return "", services.Wrap(services.ErrValidation, "orchestrator", "run", fmt.Sprintf("unknown pipeline kind %q", kind), nil)
	}
	if topicID != 0 {
		active, err := o.store.ActiveRunForTopic(ctx, topicID)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "orchestrator", "run", "check active runs", err)
		}
		if active != nil {
			return "", services.Wrap(services.ErrConflict, "orchestrator", "run",
				fmt.Sprintf("topic %d already has active run %s", topicID, active.ID), nil)
		}
	}
	run, err := o.store.CreateRun(ctx, string(kind), trigger, pipeline.InitialStage(kind), topicID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "orchestrator", "run", "create run", err)
	}
	ctx = services.WithRunID(ctx, run.ID)
	o.appendLog(ctx, run, store.LogInfo, fmt.Sprintf("run started (%s, %s)", kind, trigger))
	o.drive(ctx, run.ID)
	return run.ID, nil
}

// Advance executes the run's current stage and moves the run forward.
// Stage failure marks the run failed and is reported through the
// returned outcome, not the error.
func (o *Orchestrator) Advance(ctx context.Context, runID string) (pipeline.StageOutcome, error) {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrTransient, "orchestrator", "advance", "load run", err)
	}
	if run == nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrNotFound, "orchestrator", "advance", fmt.Sprintf("run %s not found", runID), nil)
	}
	if run.Status.Terminal() {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrConflict, "orchestrator", "advance",
			fmt.Sprintf("run %s is %s and cannot advance", runID, run.Status), nil)
	}
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithStage(ctx, run.CurrentStage)
	if run.TopicID != 0 {
		ctx = services.WithTopicID(ctx, run.TopicID)
	}
	ex, err := o.loadExchange(ctx, run)
	if err != nil {
		return o.failRun(ctx, run, run.CurrentStage, err), nil
	}
	if pipeline.IsGateStage(run.CurrentStage) {
		return o.suspendAtGate(ctx, run, ex)
	}
	handler := o.handlers[run.CurrentStage]
	if handler == nil {
		return o.failRun(ctx, run, run.CurrentStage,
			services.Wrap(services.ErrConfiguration, "orchestrator", "advance",
				fmt.Sprintf("no executor registered for stage %s", run.CurrentStage), nil)), nil
	}
	if err := o.executeStage(ctx, handler, ex); err != nil {
		return o.failRun(ctx, run, run.CurrentStage, err), nil
	}
	if err := o.persistExchange(ctx, run, ex); err != nil {
		return o.failRun(ctx, run, run.CurrentStage, err), nil
	}
	if run.CurrentStage == pipeline.StageTopicSelection && run.TopicID != 0 {
		if outcome, conflict := o.checkTopicConflict(ctx, run); conflict {
			return outcome, nil
		}
	}
	return o.completeStage(ctx, run)
}

// drive advances until the run leaves the advanced outcome.
func (o *Orchestrator) drive(ctx context.Context, runID string) pipeline.StageOutcome {
	for {
		outcome, err := o.Advance(ctx, runID)
		if err != nil {
			logging.WithContext(ctx, o.logger).Error("advance aborted", logging.Error(err))
			return outcome
		}
		if outcome != pipeline.OutcomeAdvanced {
			return outcome
		}
	}
}

func (o *Orchestrator) executeStage(ctx context.Context, handler stage.Handler, ex *stage.Exchange) error {
	timeout := time.Duration(o.cfg.Workflow.StageTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := handler.Prepare(stageCtx, ex); err != nil {
		return err
	}
	return handler.Execute(stageCtx, ex)
}

func (o *Orchestrator) loadExchange(ctx context.Context, run *store.PipelineRun) (*stage.Exchange, error) {
	ex := &stage.Exchange{Run: run}
	if run.TopicID != 0 {
		topic, err := o.store.GetTopic(ctx, run.TopicID)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "orchestrator", "advance", "load topic", err)
		}
		if topic == nil {
			return nil, services.Wrap(services.ErrNotFound, "orchestrator", "advance",
				fmt.Sprintf("topic %d not found", run.TopicID), nil)
		}
		ex.Topic = topic
	}
	if run.ContentID != 0 {
		piece, err := o.store.GetContentPiece(ctx, run.ContentID)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "orchestrator", "advance", "load content", err)
		}
		if piece == nil {
			return nil, services.Wrap(services.ErrNotFound, "orchestrator", "advance",
				fmt.Sprintf("content %d not found", run.ContentID), nil)
		}
		ex.Content = piece
	}
	return ex, nil
}

func (o *Orchestrator) persistExchange(ctx context.Context, run *store.PipelineRun, ex *stage.Exchange) error {
	if ex.Topic != nil {
		if err := o.store.UpdateTopic(ctx, ex.Topic); err != nil {
			return services.Wrap(services.ErrTransient, "orchestrator", "advance", "persist topic", err)
		}
		run.TopicID = ex.Topic.ID
	}
	if ex.Content != nil {
		if err := o.store.UpdateContentPiece(ctx, ex.Content); err != nil {
			return services.Wrap(services.ErrTransient, "orchestrator", "advance", "persist content", err)
		}
		run.ContentID = ex.Content.ID
	}
	return nil
}

// checkTopicConflict enforces at most one active run per topic once
// topic selection has bound a topic to this run.
func (o *Orchestrator) checkTopicConflict(ctx context.Context, run *store.PipelineRun) (pipeline.StageOutcome, bool) {
	other, err := o.store.ActiveRunForTopic(ctx, run.TopicID)
	if err != nil {
		outcome := o.failRun(ctx, run, run.CurrentStage,
			services.Wrap(services.ErrTransient, "orchestrator", "advance", "check active runs", err))
		return outcome, true
	}
	if other == nil || other.ID == run.ID {
		return "", false
	}
	outcome := o.failRun(ctx, run, run.CurrentStage,
		services.Wrap(services.ErrConflict, "orchestrator", "advance",
			fmt.Sprintf("topic %d already has active run %s", run.TopicID, other.ID), nil))
	return outcome, true
}

func (o *Orchestrator) completeStage(ctx context.Context, run *store.PipelineRun) (pipeline.StageOutcome, error) {
	stageName := run.CurrentStage
	run.StagesCompleted = append(run.StagesCompleted, stageName)
	next := pipeline.NextStage(pipeline.Kind(run.Kind), stageName)
	if next == "" {
		now := o.now().UTC()
		run.Status = store.RunCompleted
		run.CompletedAt = &now
		if err := o.store.UpdateRun(ctx, run); err != nil {
			return pipeline.OutcomeFailed, services.Wrap(services.ErrTransient, "orchestrator", "advance", "persist completed run", err)
		}
		o.appendLog(ctx, run, store.LogSuccess, fmt.Sprintf("run completed after %s", stageName))
		return pipeline.OutcomeCompleted, nil
	}
	run.CurrentStage = next
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrTransient, "orchestrator", "advance", "persist advanced run", err)
	}
	o.appendLog(ctx, run, store.LogInfo, fmt.Sprintf("stage %s completed, next %s", stageName, next))
	return pipeline.OutcomeAdvanced, nil
}

func (o *Orchestrator) suspendAtGate(ctx context.Context, run *store.PipelineRun, ex *stage.Exchange) (pipeline.StageOutcome, error) {
	pending, err := o.pendingApprovalForRun(ctx, run.ID)
	if err != nil {
		return o.failRun(ctx, run, run.CurrentStage, err), nil
	}
	if pending != nil {
		logging.WithContext(ctx, o.logger).Info("run already waiting on approval", logging.String("approval_id", pending.ID))
		return pipeline.OutcomeSuspended, nil
	}
	if o.gate == nil {
		return o.failRun(ctx, run, run.CurrentStage,
			services.Wrap(services.ErrConfiguration, "orchestrator", "advance", "approval gate not wired", nil)), nil
	}
	approval, err := o.gate.RequestContentReview(ctx, run, ex.Topic, ex.Content)
	if err != nil {
		return o.failRun(ctx, run, run.CurrentStage, err), nil
	}
	o.appendLog(ctx, run, store.LogInfo, fmt.Sprintf("suspended for approval %s", approval.ID))
	return pipeline.OutcomeSuspended, nil
}

func (o *Orchestrator) pendingApprovalForRun(ctx context.Context, runID string) (*store.Approval, error) {
	pending, err := o.store.PendingApprovals(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "advance", "list pending approvals", err)
	}
	for _, approval := range pending {
		if approval.RunID == runID {
			return approval, nil
		}
	}
	return nil, nil
}

// ResumeApproved moves a run past its gate stage after an approval and
// drives it to its next resting point.
func (o *Orchestrator) ResumeApproved(ctx context.Context, runID string) (pipeline.StageOutcome, error) {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrTransient, "orchestrator", "resume", "load run", err)
	}
	if run == nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrNotFound, "orchestrator", "resume", fmt.Sprintf("run %s not found", runID), nil)
	}
	if run.Status.Terminal() {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrConflict, "orchestrator", "resume",
			fmt.Sprintf("run %s is %s", runID, run.Status), nil)
	}
	if !pipeline.IsGateStage(run.CurrentStage) {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrConflict, "orchestrator", "resume",
			fmt.Sprintf("run %s is at stage %s, not a gate", runID, run.CurrentStage), nil)
	}
	ctx = services.WithRunID(ctx, run.ID)
	run.StagesCompleted = append(run.StagesCompleted, run.CurrentStage)
	run.CurrentStage = pipeline.NextStage(pipeline.Kind(run.Kind), run.CurrentStage)
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return pipeline.OutcomeFailed, services.Wrap(services.ErrTransient, "orchestrator", "resume", "persist resumed run", err)
	}
	o.appendLog(ctx, run, store.LogInfo, "approval granted, run resumed")
	return o.drive(ctx, run.ID), nil
}

// FailFromGate marks a suspended run failed after a rejection.
func (o *Orchestrator) FailFromGate(ctx context.Context, runID, reason string) error {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "orchestrator", "fail", "load run", err)
	}
	if run == nil {
		return services.Wrap(services.ErrNotFound, "orchestrator", "fail", fmt.Sprintf("run %s not found", runID), nil)
	}
	if run.Status.Terminal() {
		return services.Wrap(services.ErrConflict, "orchestrator", "fail", fmt.Sprintf("run %s is %s", runID, run.Status), nil)
	}
	ctx = services.WithRunID(ctx, run.ID)
	o.failRun(ctx, run, run.CurrentStage,
		services.Wrap(services.ErrValidation, "orchestrator", "fail", reason, nil))
	return nil
}

// failRun records the stage failure, marks the run failed, and writes
// the error to both logs. It never returns an error; ledger write
// problems are logged and the failed outcome stands.
func (o *Orchestrator) failRun(ctx context.Context, run *store.PipelineRun, stageName string, cause error) pipeline.StageOutcome {
	logger := logging.WithContext(ctx, o.logger)
	now := o.now().UTC()
	run.StagesFailed = append(run.StagesFailed, stageName)
	run.ErrorMessage = services.Message(cause)
	run.Status = store.RunFailed
	run.CompletedAt = &now
	if err := o.store.UpdateRun(ctx, run); err != nil {
		logger.Error("failed to persist failed run", logging.Error(err))
	}
	o.appendLog(ctx, run, store.LogError, fmt.Sprintf("stage %s failed: %s", stageName, run.ErrorMessage))
	logger.Error("stage failed",
		logging.String("stage", stageName),
		logging.Error(cause))
	return pipeline.OutcomeFailed
}

func (o *Orchestrator) appendLog(ctx context.Context, run *store.PipelineRun, level store.LogLevel, message string) {
	entry := &store.LogEntry{RunID: run.ID, TopicID: run.TopicID, Level: level, Message: message}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		logging.WithContext(ctx, o.logger).Warn("ledger append failed", logging.Error(err))
	}
}

// HealthReport runs every registered stage health check.
func (o *Orchestrator) HealthReport(ctx context.Context) []stage.Health {
	report := make([]stage.Health, 0, len(o.handlers))
	for _, name := range []string{
		pipeline.StageTopicSelection,
		pipeline.StageHebrewGeneration,
		pipeline.StageWPDraftVideo,
		pipeline.StageHebrewPublish,
		pipeline.StageEnglishPublish,
		pipeline.StagePodcast,
		pipeline.StageSEOAudit,
	} {
		handler := o.handlers[name]
		if handler == nil {
			report = append(report, stage.Unhealthy(name, "no executor registered"))
			continue
		}
		report = append(report, handler.HealthCheck(ctx))
	}
	return report
}

// ReclaimStaleRuns fails running runs that have not progressed within
// the configured window. Crash recovery for runs orphaned mid-stage.
func (o *Orchestrator) ReclaimStaleRuns(ctx context.Context) (int, error) {
	hours := o.cfg.Workflow.StaleRunHours
	if hours <= 0 {
		return 0, nil
	}
	cutoff := o.now().UTC().Add(-time.Duration(hours) * time.Hour)
	stale, err := o.store.StaleRuns(ctx, cutoff)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "orchestrator", "reclaim", "list stale runs", err)
	}
	for _, run := range stale {
		runCtx := services.WithRunID(ctx, run.ID)
		o.failRun(runCtx, run, run.CurrentStage,
			services.Wrap(services.ErrTimeout, "orchestrator", "reclaim",
				fmt.Sprintf("no progress since %s", run.UpdatedAt.Format(time.RFC3339)), nil))
	}
	return len(stale), nil
}
