package healer_test

import (
	"context"
	"testing"

	"pressline/internal/healer"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/pipeline"
	"pressline/internal/stage"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

type recordingHandler struct {
	executed int
	execute  func(ctx context.Context, ex *stage.Exchange) error
}

func (r *recordingHandler) Prepare(context.Context, *stage.Exchange) error { return nil }

func (r *recordingHandler) Execute(ctx context.Context, ex *stage.Exchange) error {
	r.executed++
	if r.execute != nil {
		return r.execute(ctx, ex)
	}
	return nil
}

func (r *recordingHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy("stub") }

type healerFixture struct {
	st      *store.Store
	healer  *healer.Healer
	english *recordingHandler
	seo     *recordingHandler
	publish *recordingHandler
}

func newHealerFixture(t *testing.T) *healerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	english := &recordingHandler{execute: func(ctx context.Context, ex *stage.Exchange) error {
		ex.Content.BodyEn = "healed translation"
		return nil
	}}
	seo := &recordingHandler{execute: func(ctx context.Context, ex *stage.Exchange) error {
		ex.Content.SEOScore = 95
		return nil
	}}
	publish := &recordingHandler{execute: func(ctx context.Context, ex *stage.Exchange) error {
		ex.Content.Status = store.ContentPublished
		return nil
	}}

	orch := orchestrator.New(cfg, st, logging.NewNop(), orchestrator.Handlers{
		TopicSelection:   &recordingHandler{},
		HebrewGeneration: &recordingHandler{},
		WPDraftVideo:     &recordingHandler{},
		HebrewPublish:    publish,
		EnglishPublish:   english,
		Podcast:          &recordingHandler{},
		SEOAudit:         seo,
	})
	return &healerFixture{
		st:      st,
		healer:  healer.New(cfg, st, orch, logging.NewNop()),
		english: english,
		seo:     seo,
		publish: publish,
	}
}

func publishedPiece(t *testing.T, st *store.Store, topicID int64, bodyEn string, seoScore int) *store.ContentPiece {
	t.Helper()
	piece, err := st.CreateContentPiece(context.Background(), &store.ContentPiece{
		TopicID:  topicID,
		BodyHe:   "גוף מאמר",
		BodyEn:   bodyEn,
		SEOScore: seoScore,
		Status:   store.ContentPublished,
	})
	if err != nil {
		t.Fatalf("CreateContentPiece: %v", err)
	}
	return piece
}

func TestScanIsSelectiveAndReadOnly(t *testing.T) {
	f := newHealerFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Scan", "scan")

	healthy := publishedPiece(t, f.st, topic.ID, "english body", 90)
	missing := publishedPiece(t, f.st, topic.ID, "", 90)

	report, err := f.healer.Scan(ctx, 10)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if report.Scanned != 2 {
		t.Fatalf("scanned = %d, want 2", report.Scanned)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("findings = %v, want one", report.Findings)
	}
	if report.Findings[0].ContentID != missing.ID || report.Findings[0].Defect != pipeline.DefectMissingTranslation {
		t.Fatalf("finding = %+v", report.Findings[0])
	}

	// Scanning never mutates records or invokes executors.
	if f.english.executed != 0 || f.seo.executed != 0 {
		t.Fatal("scan invoked a stage executor")
	}
	unchanged, err := f.st.GetContentPiece(ctx, healthy.ID)
	if err != nil {
		t.Fatalf("GetContentPiece: %v", err)
	}
	if !unchanged.UpdatedAt.Equal(healthy.UpdatedAt) {
		t.Fatal("scan touched a healthy record")
	}
}

func TestHealAllRemediatesFindings(t *testing.T) {
	f := newHealerFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "HealAll", "heal")

	missing := publishedPiece(t, f.st, topic.ID, "", 90)
	low := publishedPiece(t, f.st, topic.ID, "english", 10)

	report, err := f.healer.HealAll(ctx, 10)
	if err != nil {
		t.Fatalf("HealAll: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %v", report.Results)
	}
	for _, result := range report.Results {
		if result.Outcome != pipeline.HealApplied {
			t.Fatalf("result = %+v, want healed", result)
		}
	}

	healedMissing, _ := f.st.GetContentPiece(ctx, missing.ID)
	if healedMissing.BodyEn == "" {
		t.Fatal("missing translation was not filled")
	}
	if healedMissing.HealingSince != nil {
		t.Fatal("healing marker left set after heal")
	}
	healedLow, _ := f.st.GetContentPiece(ctx, low.ID)
	if healedLow.SEOScore < 80 {
		t.Fatalf("seo score after heal = %d", healedLow.SEOScore)
	}
}

func TestHealAllWithDefectFilterSweepsOnlyThatDefect(t *testing.T) {
	f := newHealerFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Filter", "filter")

	missing := publishedPiece(t, f.st, topic.ID, "", 90)
	low := publishedPiece(t, f.st, topic.ID, "english", 10)

	report, err := f.healer.HealAll(ctx, 10, pipeline.DefectLowSEO)
	if err != nil {
		t.Fatalf("HealAll: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].ContentID != low.ID {
		t.Fatalf("findings = %v, want only the low-seo record", report.Findings)
	}
	if len(report.Results) != 1 || report.Results[0].Outcome != pipeline.HealApplied {
		t.Fatalf("results = %v, want one healed", report.Results)
	}
	if f.seo.executed != 1 {
		t.Fatalf("seo executor calls = %d, want 1", f.seo.executed)
	}
	if f.english.executed != 0 {
		t.Fatal("translation executor ran during a seo-only sweep")
	}

	untouched, err := f.st.GetContentPiece(ctx, missing.ID)
	if err != nil {
		t.Fatalf("GetContentPiece: %v", err)
	}
	if untouched.BodyEn != "" {
		t.Fatal("missing translation was remediated outside the filter")
	}
	healed, err := f.st.GetContentPiece(ctx, low.ID)
	if err != nil {
		t.Fatalf("GetContentPiece: %v", err)
	}
	if healed.SEOScore < 80 {
		t.Fatalf("seo score after filtered heal = %d", healed.SEOScore)
	}
}

func TestHealSkipsRecordsUnderActiveMarker(t *testing.T) {
	f := newHealerFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Marker", "marker")
	piece := publishedPiece(t, f.st, topic.ID, "", 90)

	if ok, err := f.st.AcquireHealing(ctx, piece.ID); err != nil || !ok {
		t.Fatalf("AcquireHealing: ok=%v err=%v", ok, err)
	}

	report, err := f.healer.HealAll(ctx, 10)
	if err != nil {
		t.Fatalf("HealAll: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Outcome != pipeline.HealSkipped {
		t.Fatalf("results = %v, want one skipped", report.Results)
	}
	if f.english.executed != 0 {
		t.Fatal("executor ran despite held marker")
	}
}

func TestHealFailureIsIsolatedPerRecord(t *testing.T) {
	f := newHealerFixture(t)
	ctx := context.Background()
	topic := testsupport.NewTopic(t, f.st, "Isolation", "isolation")

	bad := publishedPiece(t, f.st, topic.ID, "", 90)
	good := publishedPiece(t, f.st, topic.ID, "", 90)

	calls := 0
	f.english.execute = func(ctx context.Context, ex *stage.Exchange) error {
		calls++
		if ex.Content.ID == bad.ID {
			return context.DeadlineExceeded
		}
		ex.Content.BodyEn = "healed"
		return nil
	}

	report, err := f.healer.HealAll(ctx, 10)
	if err != nil {
		t.Fatalf("HealAll: %v", err)
	}
	if calls != 2 {
		t.Fatalf("executor calls = %d, want 2", calls)
	}
	outcomes := map[int64]pipeline.HealOutcome{}
	for _, result := range report.Results {
		outcomes[result.ContentID] = result.Outcome
	}
	if outcomes[bad.ID] != pipeline.HealFailed {
		t.Fatalf("bad record outcome = %s", outcomes[bad.ID])
	}
	if outcomes[good.ID] != pipeline.HealApplied {
		t.Fatalf("good record outcome = %s", outcomes[good.ID])
	}

	// Markers are released on both paths.
	for _, id := range []int64{bad.ID, good.ID} {
		piece, err := f.st.GetContentPiece(ctx, id)
		if err != nil {
			t.Fatalf("GetContentPiece: %v", err)
		}
		if piece.HealingSince != nil {
			t.Fatalf("marker still held on %d", id)
		}
	}
}
