package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

type stubHandler struct {
	name     string
	executed int
	execute  func(ctx context.Context, ex *stage.Exchange) error
}

func (s *stubHandler) Prepare(context.Context, *stage.Exchange) error { return nil }

func (s *stubHandler) Execute(ctx context.Context, ex *stage.Exchange) error {
	s.executed++
	if s.execute != nil {
		return s.execute(ctx, ex)
	}
	return nil
}

func (s *stubHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name) }

type gateStub struct {
	st *store.Store
}

func (g *gateStub) RequestContentReview(ctx context.Context, run *store.PipelineRun, topic *store.Topic, content *store.ContentPiece) (*store.Approval, error) {
	return g.st.CreateApproval(ctx, store.ApprovalContentReview, run.ID, content.ID)
}

// contentCreator fabricates a draft piece the way the generation stage
// would, so the rest of the topology has a record to carry.
func contentCreator(st *store.Store) func(ctx context.Context, ex *stage.Exchange) error {
	return func(ctx context.Context, ex *stage.Exchange) error {
		piece, err := st.CreateContentPiece(ctx, &store.ContentPiece{
			TopicID:  ex.Topic.ID,
			BodyHe:   "טיוטה בעברית",
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
}

type fixture struct {
	cfg      *config.Config
	st       *store.Store
	orch     *orchestrator.Orchestrator
	handlers map[string]*stubHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	stubs := map[string]*stubHandler{}
	for _, name := range []string{
		pipeline.StageTopicSelection,
		pipeline.StageHebrewGeneration,
		pipeline.StageWPDraftVideo,
		pipeline.StageHebrewPublish,
		pipeline.StageEnglishPublish,
		pipeline.StagePodcast,
		pipeline.StageSEOAudit,
	} {
		stubs[name] = &stubHandler{name: name}
	}
	stubs[pipeline.StageHebrewGeneration].execute = contentCreator(st)

	orch := orchestrator.New(cfg, st, logging.NewNop(), orchestrator.Handlers{
		TopicSelection:   stubs[pipeline.StageTopicSelection],
		HebrewGeneration: stubs[pipeline.StageHebrewGeneration],
		WPDraftVideo:     stubs[pipeline.StageWPDraftVideo],
		HebrewPublish:    stubs[pipeline.StageHebrewPublish],
		EnglishPublish:   stubs[pipeline.StageEnglishPublish],
		Podcast:          stubs[pipeline.StagePodcast],
		SEOAudit:         stubs[pipeline.StageSEOAudit],
	})
	orch.SetGate(&gateStub{st: st})
	return &fixture{cfg: cfg, st: st, orch: orch, handlers: stubs}
}

func TestContentRunSuspendsAtGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Transit", "transit")

	runID, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := f.st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunRunning {
		t.Fatalf("suspended run status = %s", run.Status)
	}
	if run.CurrentStage != pipeline.StageApprovalGate {
		t.Fatalf("suspended run stage = %s", run.CurrentStage)
	}
	if len(run.StagesCompleted) != 3 {
		t.Fatalf("stages completed = %v", run.StagesCompleted)
	}
	if run.ContentID == 0 {
		t.Fatal("run did not record its content piece")
	}

	pending, err := f.st.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("PendingApprovals: %v", err)
	}
	if len(pending) != 1 || pending[0].RunID != runID {
		t.Fatalf("pending approvals = %v", pending)
	}

	// A second advance while suspended must not duplicate the request.
	outcome, err := f.orch.Advance(ctx, runID)
	if err != nil {
		t.Fatalf("Advance while suspended: %v", err)
	}
	if outcome != pipeline.OutcomeSuspended {
		t.Fatalf("outcome = %s, want suspended", outcome)
	}
	pending, _ = f.st.PendingApprovals(ctx)
	if len(pending) != 1 {
		t.Fatalf("duplicate approval created: %v", pending)
	}
}

func TestResumeApprovedRunsToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Budget", "budget")

	runID, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcome, err := f.orch.ResumeApproved(ctx, runID)
	if err != nil {
		t.Fatalf("ResumeApproved: %v", err)
	}
	if outcome != pipeline.OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", outcome)
	}

	run, err := f.st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunCompleted {
		t.Fatalf("run status = %s", run.Status)
	}
	if run.CompletedAt == nil {
		t.Fatal("completed run missing completion time")
	}
	topology := pipeline.Topology(pipeline.KindContent)
	if len(run.StagesCompleted) != len(topology) {
		t.Fatalf("stages completed = %v", run.StagesCompleted)
	}
	for i, name := range topology {
		if run.StagesCompleted[i] != name {
			t.Fatalf("stages completed = %v, want topology order %v", run.StagesCompleted, topology)
		}
	}
	if f.handlers[pipeline.StageHebrewPublish].executed != 1 || f.handlers[pipeline.StageEnglishPublish].executed != 1 {
		t.Fatal("post-gate stages were not executed exactly once")
	}
}

func TestStageFailureFailsRunWithoutRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Housing", "housing")

	boom := services.Wrap(services.ErrExternal, "hebrew-generator", "execute", "provider unavailable", nil)
	f.handlers[pipeline.StageHebrewGeneration].execute = func(context.Context, *stage.Exchange) error {
		return boom
	}

	runID, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := f.st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunFailed {
		t.Fatalf("run status = %s, want failed", run.Status)
	}
	if len(run.StagesFailed) != 1 || run.StagesFailed[0] != pipeline.StageHebrewGeneration {
		t.Fatalf("stages failed = %v", run.StagesFailed)
	}
	if run.ErrorMessage == "" {
		t.Fatal("failed run missing error message")
	}
	if f.handlers[pipeline.StageHebrewGeneration].executed != 1 {
		t.Fatalf("failed stage executed %d times, want 1", f.handlers[pipeline.StageHebrewGeneration].executed)
	}
	if f.handlers[pipeline.StageWPDraftVideo].executed != 0 {
		t.Fatal("stages after the failure should not run")
	}

	if _, err := f.orch.Advance(ctx, runID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("advance on failed run error = %v, want conflict", err)
	}

	entries, err := f.st.RunLogs(ctx, runID, 10)
	if err != nil {
		t.Fatalf("RunLogs: %v", err)
	}
	sawError := false
	for _, entry := range entries {
		if entry.Level == store.LogError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("stage failure was not recorded in the ledger")
	}
}

func TestSecondRunForActiveTopicConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Climate", "climate")

	if _, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := f.orch.Run(ctx, pipeline.KindContent, store.TriggerManual, topic.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("second Run error = %v, want conflict", err)
	}
}

func TestConflictCheckStoreFailureFailsStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Flaky", "flaky")

	run, err := f.st.CreateRun(ctx, string(pipeline.KindContent), store.TriggerManual, pipeline.StageTopicSelection, topic.ID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	// A store error during the duplicate-run check must fail the stage,
	// not pass as the absence of a conflict.
	f.handlers[pipeline.StageTopicSelection].execute = func(ctx context.Context, ex *stage.Exchange) error {
		ex.Topic = nil
		return f.st.Close()
	}

	outcome, err := f.orch.Advance(ctx, run.ID)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if outcome != pipeline.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}
	if f.handlers[pipeline.StageHebrewGeneration].executed != 0 {
		t.Fatal("run progressed past a failed conflict check")
	}
}

func TestSingleStageRunCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	runID, err := f.orch.Run(ctx, pipeline.KindSEO, store.TriggerCron, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run, err := f.st.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.RunCompleted {
		t.Fatalf("seo run status = %s", run.Status)
	}
	if f.handlers[pipeline.StageSEOAudit].executed != 1 {
		t.Fatalf("seo-audit executed %d times", f.handlers[pipeline.StageSEOAudit].executed)
	}
}

func TestHealMissingTranslationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Science", "science")

	piece, err := f.st.CreateContentPiece(ctx, &store.ContentPiece{
		TopicID:  topic.ID,
		BodyHe:   "גוף בעברית",
		SEOScore: 95,
		Status:   store.ContentPublished,
	})
	if err != nil {
		t.Fatalf("CreateContentPiece: %v", err)
	}

	f.handlers[pipeline.StageEnglishPublish].execute = func(ctx context.Context, ex *stage.Exchange) error {
		ex.Content.BodyEn = "English rendering"
		return nil
	}

	outcome, err := f.orch.HealDefect(ctx, piece.ID, pipeline.DefectMissingTranslation)
	if err != nil {
		t.Fatalf("HealDefect: %v", err)
	}
	if outcome != pipeline.HealApplied {
		t.Fatalf("first heal outcome = %s", outcome)
	}
	if f.handlers[pipeline.StageEnglishPublish].executed != 1 {
		t.Fatalf("english stage executed %d times", f.handlers[pipeline.StageEnglishPublish].executed)
	}

	healed, err := f.st.GetContentPiece(ctx, piece.ID)
	if err != nil {
		t.Fatalf("GetContentPiece: %v", err)
	}
	if healed.BodyEn != "English rendering" {
		t.Fatalf("BodyEn = %q", healed.BodyEn)
	}

	outcome, err = f.orch.HealDefect(ctx, piece.ID, pipeline.DefectMissingTranslation)
	if err != nil {
		t.Fatalf("second HealDefect: %v", err)
	}
	if outcome != pipeline.HealAlreadyOK {
		t.Fatalf("second heal outcome = %s, want already-ok", outcome)
	}
	if f.handlers[pipeline.StageEnglishPublish].executed != 1 {
		t.Fatal("healthy record re-triggered remediation")
	}
}

func TestHealUnknownContent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Heal(context.Background(), 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Heal unknown error = %v, want not found", err)
	}
}

func TestProposeWithFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	topic, err := f.orch.ProposeWithFeedback(ctx, "Too technical, should be more accessible for beginners")
	if err != nil {
		t.Fatalf("ProposeWithFeedback: %v", err)
	}
	if topic.Status != store.TopicProposed {
		t.Fatalf("topic status = %s, want proposed", topic.Status)
	}
	if len(topic.Keywords) == 0 {
		t.Fatal("topic has no derived keywords")
	}
	found := false
	for _, kw := range topic.Keywords {
		if kw == "technical" {
			found = true
		}
	}
	if !found {
		t.Fatalf("keywords %v missing feedback terms", topic.Keywords)
	}

	entries, err := f.st.QueryLogs(ctx, topic.ID, 5)
	if err != nil {
		t.Fatalf("QueryLogs: %v", err)
	}
	if len(entries) == 0 || entries[0].Level != store.LogAgent {
		t.Fatalf("proposal not recorded as agent entry: %v", entries)
	}

	if _, err := f.orch.ProposeWithFeedback(ctx, "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty feedback error = %v, want validation", err)
	}
}
