package store_test

import (
	"context"
	"testing"
	"time"

	"pressline/internal/pipeline"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

func TestCreateAndAdvanceRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Transit", "transit")
	run, err := st.CreateRun(ctx, string(pipeline.KindContent), store.TriggerManual, pipeline.StageTopicSelection, topic.ID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != store.RunRunning {
		t.Fatalf("new run status = %s", run.Status)
	}
	if run.CurrentStage != pipeline.StageTopicSelection {
		t.Fatalf("new run stage = %s", run.CurrentStage)
	}

	run.StagesCompleted = append(run.StagesCompleted, run.CurrentStage)
	run.CurrentStage = pipeline.StageHebrewGeneration
	if err := st.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	loaded, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if loaded.CurrentStage != pipeline.StageHebrewGeneration {
		t.Fatalf("loaded stage = %s", loaded.CurrentStage)
	}
	if len(loaded.StagesCompleted) != 1 || loaded.StagesCompleted[0] != pipeline.StageTopicSelection {
		t.Fatalf("stages completed = %v", loaded.StagesCompleted)
	}
}

func TestTerminalRunIsImmutable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, string(pipeline.KindSEO), store.TriggerCron, pipeline.StageSEOAudit, 0)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	now := time.Now().UTC()
	run.Status = store.RunCompleted
	run.CompletedAt = &now
	if err := st.UpdateRun(ctx, run); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	run.CurrentStage = "something-else"
	if err := st.UpdateRun(ctx, run); err == nil {
		t.Fatal("expected update on terminal run to fail")
	}

	loaded, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if loaded.CurrentStage != pipeline.StageSEOAudit {
		t.Fatalf("terminal run was mutated: stage = %s", loaded.CurrentStage)
	}
}

func TestActiveRunForTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Budget", "budget")
	run, err := st.CreateRun(ctx, string(pipeline.KindContent), store.TriggerManual, pipeline.StageTopicSelection, topic.ID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	active, err := st.ActiveRunForTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ActiveRunForTopic: %v", err)
	}
	if active == nil || active.ID != run.ID {
		t.Fatalf("active = %+v, want run %s", active, run.ID)
	}

	now := time.Now().UTC()
	run.Status = store.RunFailed
	run.CompletedAt = &now
	if err := st.UpdateRun(ctx, run); err != nil {
		t.Fatalf("fail run: %v", err)
	}
	active, err = st.ActiveRunForTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ActiveRunForTopic after failure: %v", err)
	}
	if active != nil {
		t.Fatalf("terminal run still reported active: %+v", active)
	}
}

func TestStaleRunsAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, string(pipeline.KindPodcast), store.TriggerCron, pipeline.StagePodcast, 0)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	stale, err := st.StaleRuns(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("StaleRuns: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("fresh run reported stale: %v", stale)
	}

	stale, err = st.StaleRuns(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("StaleRuns future cutoff: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != run.ID {
		t.Fatalf("stale = %v, want run %s", stale, run.ID)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 || stats.Running != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
