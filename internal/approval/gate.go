// Package approval implements the human review gate. The gate persists
// approval requests, notifies reviewers over Slack, and routes resolved
// decisions back into the orchestrator.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/services/slack"
	"pressline/internal/store"
	"pressline/internal/textutil"
)

// Resolution describes what happened when a decision was applied.
type Resolution struct {
	Approval *store.Approval
	Outcome  pipeline.StageOutcome
	// NewTopic is set when rejection feedback spawned a fresh proposal.
	NewTopic *store.Topic
}

// Gate owns the approval lifecycle between request and resolution.
type Gate struct {
	cfg      *config.Config
	store    *store.Store
	orch     *orchestrator.Orchestrator
	notifier slack.Service
	logger   *slog.Logger

	notifyTimeout time.Duration
}

// NewGate constructs the approval gate.
func NewGate(cfg *config.Config, st *store.Store, orch *orchestrator.Orchestrator, notifier slack.Service, logger *slog.Logger) *Gate {
	timeout := time.Duration(cfg.Slack.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		cfg:           cfg,
		store:         st,
		orch:          orch,
		notifier:      notifier,
		logger:        logging.NewComponentLogger(logger, "approval-gate"),
		notifyTimeout: timeout,
	}
}

// RequestContentReview records a pending approval for the run and
// notifies the reviewer. The notification is fire and forget; a Slack
// outage never blocks the pipeline, it only costs the ping.
func (g *Gate) RequestContentReview(ctx context.Context, run *store.PipelineRun, topic *store.Topic, content *store.ContentPiece) (*store.Approval, error) {
	if run == nil || content == nil {
		return nil, services.Wrap(services.ErrValidation, "approval-gate", "request", "run and content are required", nil)
	}
	approval, err := g.store.CreateApproval(ctx, store.ApprovalContentReview, run.ID, content.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "approval-gate", "request", "persist approval", err)
	}
	title := "Content review"
	if topic != nil {
		if topic.TitleEn != "" {
			title = topic.TitleEn
		} else if topic.TitleHe != "" {
			title = topic.TitleHe
		}
	}
	req := slack.ApprovalRequest{
		ApprovalID: approval.ID,
		Title:      title,
		Summary:    textutil.Excerpt(content.BodyHe, 40),
		PreviewURL: content.WPPostURL,
	}
	go g.notify(approval.ID, req)
	logging.WithContext(ctx, g.logger).Info("approval requested",
		logging.String("approval_id", approval.ID),
		logging.Int64("content_id", content.ID))
	return approval, nil
}

func (g *Gate) notify(approvalID string, req slack.ApprovalRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), g.notifyTimeout)
	defer cancel()
	if err := g.notifier.SendApprovalRequest(ctx, req); err != nil {
		g.logger.Warn("approval notification failed",
			logging.String("approval_id", approvalID),
			logging.Error(err))
	}
}

// Resolve applies an external decision to a pending approval. The first
// resolution wins; any later attempt surfaces a conflict. Approving
// resumes the suspended run, rejecting fails it, and rejection feedback
// additionally spawns a fresh topic proposal.
func (g *Gate) Resolve(ctx context.Context, approvalID, decision, responderID, feedback string) (*Resolution, error) {
	status, ok := store.ParseApprovalDecision(decision)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "approval-gate", "resolve",
			fmt.Sprintf("unknown decision %q", decision), nil)
	}
	if reviewer := strings.TrimSpace(g.cfg.Slack.ReviewerID); reviewer != "" && responderID != reviewer {
		return nil, services.Wrap(services.ErrValidation, "approval-gate", "resolve",
			fmt.Sprintf("responder %q is not the configured reviewer", responderID), nil)
	}
	approval, err := g.store.ResolveApproval(ctx, approvalID, status, responderID, feedback)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, g.logger)
	logger.Info("approval resolved",
		logging.String("approval_id", approval.ID),
		logging.String("decision", string(status)),
		logging.String("responder", responderID))

	res := &Resolution{Approval: approval}
	switch status {
	case store.ApprovalApproved:
		outcome, err := g.orch.ResumeApproved(ctx, approval.RunID)
		if err != nil {
			return res, err
		}
		res.Outcome = outcome
	case store.ApprovalRejected, store.ApprovalChangesRequested:
		g.markTopicRejected(ctx, approval, status)
		if strings.TrimSpace(feedback) != "" {
			topic, err := g.orch.ProposeWithFeedback(ctx, feedback)
			if err != nil {
				logger.Warn("feedback proposal failed", logging.Error(err))
			} else {
				res.NewTopic = topic
			}
		}
		if err := g.orch.FailFromGate(ctx, approval.RunID, fmt.Sprintf("review %s by %s", status, responderID)); err != nil {
			return res, err
		}
		res.Outcome = pipeline.OutcomeFailed
	}
	return res, nil
}

// markTopicRejected freezes the reviewed topic so the selector never
// picks it again. Replacement happens through a new proposal, not by
// editing the rejected topic.
func (g *Gate) markTopicRejected(ctx context.Context, approval *store.Approval, status store.ApprovalStatus) {
	piece, err := g.store.GetContentPiece(ctx, approval.EntityID)
	if err != nil || piece == nil || piece.TopicID == 0 {
		return
	}
	topic, err := g.store.GetTopic(ctx, piece.TopicID)
	if err != nil || topic == nil {
		return
	}
	if status == store.ApprovalChangesRequested {
		topic.Status = store.TopicChangesRequested
	} else {
		topic.Status = store.TopicRejected
	}
	if err := g.store.UpdateTopic(ctx, topic); err != nil {
		logging.WithContext(ctx, g.logger).Warn("topic status update failed",
			logging.Int64("topic_id", topic.ID),
			logging.Error(err))
	}
}

// Pending lists approvals still waiting on a decision.
func (g *Gate) Pending(ctx context.Context) ([]*store.Approval, error) {
	return g.store.PendingApprovals(ctx)
}
