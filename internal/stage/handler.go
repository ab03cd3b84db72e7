// Package stage defines the contract the orchestrator needs from each
// pipeline stage executor.
package stage

import (
	"context"

	"pressline/internal/store"
)

// Exchange carries the records a stage executor reads and mutates. The
// orchestrator persists Run/Topic/Content after each successful Execute.
type Exchange struct {
	Run     *store.PipelineRun
	Topic   *store.Topic
	Content *store.ContentPiece
}

// Handler describes the contract the orchestrator needs from each stage.
type Handler interface {
	Prepare(context.Context, *Exchange) error
	Execute(context.Context, *Exchange) error
	HealthCheck(context.Context) Health
}
