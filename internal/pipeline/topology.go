package pipeline

import "strings"

// Kind identifies a pipeline variant with a fixed stage topology.
type Kind string

const (
	KindContent Kind = "content"
	KindSEO     Kind = "seo"
	KindPodcast Kind = "podcast"
)

// Stage names. Each names one unit of work in a topology.
const (
	StageTopicSelection   = "topic-selection"
	StageHebrewGeneration = "hebrew-generation"
	StageWPDraftVideo     = "wp-draft-video"
	StageApprovalGate     = "approval-gate"
	StageHebrewPublish    = "hebrew-publish"
	StageEnglishPublish   = "english-publish-social"
	StagePodcast          = "podcast-production"
	StageSEOAudit         = "seo-audit"
)

var topologies = map[Kind][]string{
	KindContent: {
		StageTopicSelection,
		StageHebrewGeneration,
		StageWPDraftVideo,
		StageApprovalGate,
		StageHebrewPublish,
		StageEnglishPublish,
	},
	KindSEO:     {StageSEOAudit},
	KindPodcast: {StagePodcast},
}

// AllKinds returns the known pipeline kinds in presentation order.
func AllKinds() []Kind {
	return []Kind{KindContent, KindSEO, KindPodcast}
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := topologies[kind]; !ok {
		return "", false
	}
	return kind, true
}

// Topology returns the ordered stage list for a kind.
func Topology(kind Kind) []string {
	stages, ok := topologies[kind]
	if !ok {
		return nil
	}
	cp := make([]string, len(stages))
	copy(cp, stages)
	return cp
}

// InitialStage returns the first stage of a kind's topology.
func InitialStage(kind Kind) string {
	stages := topologies[kind]
	if len(stages) == 0 {
		return ""
	}
	return stages[0]
}

// TerminalStage returns the last stage of a kind's topology.
func TerminalStage(kind Kind) string {
	stages := topologies[kind]
	if len(stages) == 0 {
		return ""
	}
	return stages[len(stages)-1]
}

// NextStage returns the stage following current in the kind's topology,
// or "" when current is terminal or unknown.
func NextStage(kind Kind, current string) string {
	stages := topologies[kind]
	for i, stage := range stages {
		if stage == current && i+1 < len(stages) {
			return stages[i+1]
		}
	}
	return ""
}

// ContainsStage reports whether a kind's topology includes the named stage.
func ContainsStage(kind Kind, name string) bool {
	for _, stage := range topologies[kind] {
		if stage == name {
			return true
		}
	}
	return false
}

// IsGateStage reports whether a stage suspends the run pending an
// external human decision.
func IsGateStage(name string) bool {
	return name == StageApprovalGate
}
