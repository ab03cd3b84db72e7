package pipeline

// StageOutcome is the result of one orchestrator advance attempt.
type StageOutcome string

const (
	// OutcomeAdvanced means the current stage succeeded and the run moved
	// to the next stage without reaching a terminal or gate stage.
	OutcomeAdvanced StageOutcome = "advanced"
	// OutcomeSuspended means the run reached a gate stage and is waiting
	// on an external decision.
	OutcomeSuspended StageOutcome = "suspended"
	// OutcomeCompleted means the run finished its terminal stage.
	OutcomeCompleted StageOutcome = "completed"
	// OutcomeFailed means the current stage failed and the run is failed.
	OutcomeFailed StageOutcome = "failed"
)

// HealOutcome is the result of one targeted remediation attempt.
type HealOutcome string

const (
	HealApplied   HealOutcome = "healed"
	HealAlreadyOK HealOutcome = "already-ok"
	HealFailed    HealOutcome = "failed"
	HealSkipped   HealOutcome = "skipped"
)
