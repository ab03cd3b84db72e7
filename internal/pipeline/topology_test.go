package pipeline_test

import (
	"testing"

	"pressline/internal/pipeline"
)

func TestContentTopologyOrder(t *testing.T) {
	want := []string{
		pipeline.StageTopicSelection,
		pipeline.StageHebrewGeneration,
		pipeline.StageWPDraftVideo,
		pipeline.StageApprovalGate,
		pipeline.StageHebrewPublish,
		pipeline.StageEnglishPublish,
	}
	got := pipeline.Topology(pipeline.KindContent)
	if len(got) != len(want) {
		t.Fatalf("content topology has %d stages, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("stage %d = %q, want %q", i, got[i], name)
		}
	}
}

func TestTopologyReturnsCopy(t *testing.T) {
	first := pipeline.Topology(pipeline.KindContent)
	first[0] = "mutated"
	second := pipeline.Topology(pipeline.KindContent)
	if second[0] != pipeline.StageTopicSelection {
		t.Fatal("Topology exposed internal slice")
	}
}

func TestNextStage(t *testing.T) {
	if next := pipeline.NextStage(pipeline.KindContent, pipeline.StageTopicSelection); next != pipeline.StageHebrewGeneration {
		t.Fatalf("NextStage after topic-selection = %q", next)
	}
	if next := pipeline.NextStage(pipeline.KindContent, pipeline.StageEnglishPublish); next != "" {
		t.Fatalf("NextStage after terminal stage = %q, want empty", next)
	}
	if next := pipeline.NextStage(pipeline.KindSEO, pipeline.StageSEOAudit); next != "" {
		t.Fatalf("NextStage for single-stage topology = %q, want empty", next)
	}
}

func TestSingleStageTopologies(t *testing.T) {
	if got := pipeline.Topology(pipeline.KindSEO); len(got) != 1 || got[0] != pipeline.StageSEOAudit {
		t.Fatalf("seo topology = %v", got)
	}
	if got := pipeline.Topology(pipeline.KindPodcast); len(got) != 1 || got[0] != pipeline.StagePodcast {
		t.Fatalf("podcast topology = %v", got)
	}
}

func TestGateStageOnlyInContent(t *testing.T) {
	if !pipeline.ContainsStage(pipeline.KindContent, pipeline.StageApprovalGate) {
		t.Fatal("content topology should include the gate stage")
	}
	if pipeline.ContainsStage(pipeline.KindSEO, pipeline.StageApprovalGate) {
		t.Fatal("seo topology should not include the gate stage")
	}
	if !pipeline.IsGateStage(pipeline.StageApprovalGate) {
		t.Fatal("approval-gate should be recognized as a gate stage")
	}
	if pipeline.IsGateStage(pipeline.StageHebrewPublish) {
		t.Fatal("hebrew-publish is not a gate stage")
	}
}

func TestParseKind(t *testing.T) {
	if _, ok := pipeline.ParseKind("content"); !ok {
		t.Fatal("content should parse")
	}
	if _, ok := pipeline.ParseKind("video"); ok {
		t.Fatal("unknown kind should not parse")
	}
}

func TestParseDefect(t *testing.T) {
	for _, defect := range pipeline.AllDefects() {
		if parsed, ok := pipeline.ParseDefect(string(defect)); !ok || parsed != defect {
			t.Fatalf("ParseDefect(%q) = %q, %v", defect, parsed, ok)
		}
	}
	if _, ok := pipeline.ParseDefect("bitrot"); ok {
		t.Fatal("unknown defect should not parse")
	}
}
