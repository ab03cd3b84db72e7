package store

import (
	"strings"
	"time"
)

// TopicStatus represents the lifecycle of a content topic.
type TopicStatus string

const (
	TopicProposed         TopicStatus = "proposed"
	TopicApproved         TopicStatus = "approved"
	TopicRejected         TopicStatus = "rejected"
	TopicChangesRequested TopicStatus = "changes_requested"
)

// TopicPriority orders topic selection preference.
type TopicPriority string

const (
	PriorityLow    TopicPriority = "low"
	PriorityMedium TopicPriority = "medium"
	PriorityHigh   TopicPriority = "high"
)

// Topic is a candidate content subject. Rejected topics are retained for
// audit and may be resurrected with feedback; they are never hard-deleted.
type Topic struct {
	ID         int64
	TitleHe    string
	TitleEn    string
	Keywords   []string
	Priority   TopicPriority
	Status     TopicStatus
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContentStatus represents the lifecycle of a generated content piece.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentReady     ContentStatus = "ready"
	ContentPublished ContentStatus = "published"
	ContentError     ContentStatus = "error"
)

// ContentPiece is the generated artifact for a topic. Media URLs are each
// optional and independently fillable. WPPostID is recorded by the draft
// stage and makes the publish stages idempotent against WordPress.
type ContentPiece struct {
	ID               int64
	TopicID          int64
	BodyHe           string
	BodyEn           string
	WordCount        int
	SEOScore         int
	Status           ContentStatus
	FeaturedImageURL string
	VideoURL         string
	SocialImageURL   string
	AudioURL         string
	WPPostID         int64
	WPPostURL        string
	EnPostID         int64
	HealingSince     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RunStatus represents the lifecycle of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether a run status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// TriggerType identifies what started a pipeline run.
type TriggerType string

const (
	TriggerCron   TriggerType = "cron"
	TriggerManual TriggerType = "manual"
)

// PipelineRun is the durable record of one pipeline execution. It is
// created when triggered, mutated exclusively by the orchestrator after
// each stage attempt, and becomes immutable once terminal.
type PipelineRun struct {
	ID              string
	Kind            string
	TriggerType     TriggerType
	TopicID         int64
	ContentID       int64
	Status          RunStatus
	CurrentStage    string
	StagesCompleted []string
	StagesFailed    []string
	ErrorMessage    string
	StartedAt       time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// CompletedStage reports whether the run has already recorded the named stage.
func (r *PipelineRun) CompletedStage(name string) bool {
	for _, s := range r.StagesCompleted {
		if s == name {
			return true
		}
	}
	return false
}

// ApprovalStatus represents the lifecycle of a human decision.
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
)

// Terminal reports whether an approval has been resolved.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected || s == ApprovalChangesRequested
}

// ParseApprovalDecision converts an inbound decision string into a terminal
// approval status.
func ParseApprovalDecision(value string) (ApprovalStatus, bool) {
	decision := ApprovalStatus(strings.ToLower(strings.TrimSpace(value)))
	if decision.Terminal() {
		return decision, true
	}
	return "", false
}

// ApprovalType identifies which gate produced an approval.
type ApprovalType string

const (
	ApprovalTopicSelection ApprovalType = "topic_selection"
	ApprovalContentReview  ApprovalType = "content_review"
)

// Approval is a pending or resolved human decision. Resolution is the only
// legal mutation and happens exactly once.
type Approval struct {
	ID          string
	Type        ApprovalType
	RunID       string
	EntityID    int64
	Status      ApprovalStatus
	Feedback    string
	ResponderID string
	RespondedAt *time.Time
	CreatedAt   time.Time
}

// LogLevel classifies pipeline log entries.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
	LogAgent   LogLevel = "agent"
)

// LogEntry is one append-only pipeline log record, queryable independently
// of the owning run's lifecycle.
type LogEntry struct {
	ID        int64
	RunID     string
	TopicID   int64
	Level     LogLevel
	Message   string
	CreatedAt time.Time
}

// RunStats aggregates run counts per lifecycle state.
type RunStats struct {
	Total     int
	Running   int
	Completed int
	Failed    int
}
