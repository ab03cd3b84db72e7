package approval_test

import (
	"context"
	"errors"
	"testing"

	"pressline/internal/approval"
	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/services/slack"
	"pressline/internal/stage"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

type passHandler struct{}

func (passHandler) Prepare(context.Context, *stage.Exchange) error { return nil }
func (passHandler) Execute(context.Context, *stage.Exchange) error { return nil }
func (passHandler) HealthCheck(context.Context) stage.Health       { return stage.Healthy("stub") }

type draftingHandler struct {
	st *store.Store
}

func (draftingHandler) Prepare(context.Context, *stage.Exchange) error { return nil }

func (h draftingHandler) Execute(ctx context.Context, ex *stage.Exchange) error {
	piece, err := h.st.CreateContentPiece(ctx, &store.ContentPiece{
		TopicID:  ex.Topic.ID,
		BodyHe:   "טיוטה לבדיקה",
		SEOScore: 90,
		Status:   store.ContentDraft,
	})
	if err != nil {
		return err
	}
	ex.Content = piece
	ex.Run.ContentID = piece.ID
	return nil
}

func (draftingHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy("drafting") }

type gateFixture struct {
	cfg  *config.Config
	st   *store.Store
	orch *orchestrator.Orchestrator
	gate *approval.Gate
}

func newGateFixture(t *testing.T, opts ...testsupport.ConfigOption) *gateFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	orch := orchestrator.New(cfg, st, logging.NewNop(), orchestrator.Handlers{
		TopicSelection:   passHandler{},
		HebrewGeneration: draftingHandler{st: st},
		WPDraftVideo:     passHandler{},
		HebrewPublish:    passHandler{},
		EnglishPublish:   passHandler{},
		Podcast:          passHandler{},
		SEOAudit:         passHandler{},
	})
	gate := approval.NewGate(cfg, st, orch, slack.NewService(cfg), logging.NewNop())
	orch.SetGate(gate)
	return &gateFixture{cfg: cfg, st: st, orch: orch, gate: gate}
}

// suspendRun drives a content run to its gate and returns the pending approval.
func (f *gateFixture) suspendRun(t *testing.T, topicTitle string) (*store.PipelineRun, *store.Approval) {
	t.Helper()
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, topicTitle, "gate")
	runID, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run, err := f.st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.CurrentStage != pipeline.StageApprovalGate {
		t.Fatalf("run did not reach the gate: stage %s, status %s, error %q", run.CurrentStage, run.Status, run.ErrorMessage)
	}
	pending, err := f.st.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("PendingApprovals: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending approvals = %v", pending)
	}
	return run, pending[0]
}

func TestApproveResumesRunToCompletion(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	run, pending := f.suspendRun(t, "Approve me")

	resolution, err := f.gate.Resolve(ctx, pending.ID, "approved", "U123", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.Outcome != pipeline.OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", resolution.Outcome)
	}

	updated, err := f.st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if updated.Status != store.RunCompleted {
		t.Fatalf("run status = %s", updated.Status)
	}
}

func TestSecondDecisionConflicts(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	_, pending := f.suspendRun(t, "Decide once")

	if _, err := f.gate.Resolve(ctx, pending.ID, "approved", "U123", ""); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := f.gate.Resolve(ctx, pending.ID, "rejected", "U123", "second thoughts"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("second Resolve error = %v, want conflict", err)
	}
}

func TestRejectWithFeedbackSpawnsProposalAndFailsRun(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	run, pending := f.suspendRun(t, "Reject me")

	resolution, err := f.gate.Resolve(ctx, pending.ID, "rejected", "U123", "Too technical, should be more accessible")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.NewTopic == nil {
		t.Fatal("rejection feedback did not spawn a topic proposal")
	}
	if resolution.NewTopic.Status != store.TopicProposed {
		t.Fatalf("new topic status = %s", resolution.NewTopic.Status)
	}
	if resolution.NewTopic.ID == run.TopicID {
		t.Fatal("proposal reused the rejected topic")
	}

	updated, err := f.st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if updated.Status != store.RunFailed {
		t.Fatalf("rejected run status = %s, want failed", updated.Status)
	}

	// The reviewed topic stays rejected; only the proposal is new.
	oldTopic, err := f.st.GetTopic(ctx, run.TopicID)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if oldTopic.Status != store.TopicRejected {
		t.Fatalf("reviewed topic status = %s, want rejected", oldTopic.Status)
	}
}

func TestRejectWithoutFeedbackJustFailsRun(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	run, pending := f.suspendRun(t, "Plain reject")

	resolution, err := f.gate.Resolve(ctx, pending.ID, "rejected", "U123", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolution.NewTopic != nil {
		t.Fatal("rejection without feedback should not spawn a proposal")
	}
	updated, err := f.st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if updated.Status != store.RunFailed {
		t.Fatalf("run status = %s", updated.Status)
	}
}

func TestResolveRejectsUnknownDecisionAndResponder(t *testing.T) {
	f := newGateFixture(t, testsupport.WithReviewer("U777"))
	ctx := context.Background()
	_, pending := f.suspendRun(t, "Guarded")

	if _, err := f.gate.Resolve(ctx, pending.ID, "maybe", "U777", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown decision error = %v, want validation", err)
	}
	if _, err := f.gate.Resolve(ctx, pending.ID, "approved", "U999", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("wrong responder error = %v, want validation", err)
	}
	if _, err := f.gate.Resolve(ctx, pending.ID, "approved", "U777", ""); err != nil {
		t.Fatalf("configured reviewer rejected: %v", err)
	}
}
