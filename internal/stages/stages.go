// Package stages implements the executors behind each pipeline stage
// name. Executors mutate the records on the exchange; the orchestrator
// owns run bookkeeping and persistence.
package stages

import (
	"context"

	"pressline/internal/services/audiogen"
	"pressline/internal/services/mediagen"
	"pressline/internal/services/wordpress"
)

// TextGenerator produces prose from a system directive and a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Configured() bool
}

// Publisher is the WordPress surface the publish stages depend on.
type Publisher interface {
	CreateDraftPost(ctx context.Context, title, content, category string) (*wordpress.Post, error)
	PublishPost(ctx context.Context, postID int64) (*wordpress.Post, error)
	GetPost(ctx context.Context, postID int64) (*wordpress.Post, error)
}

// MediaGenerator submits visual asset jobs and waits for results.
type MediaGenerator interface {
	Submit(ctx context.Context, spec mediagen.JobSpec) (string, error)
	Await(ctx context.Context, taskID string) (*mediagen.JobStatus, error)
}

// AudioGenerator synthesizes narrated audio from a script.
type AudioGenerator interface {
	Submit(ctx context.Context, script string) (string, error)
	Await(ctx context.Context, taskID string) (*audiogen.JobStatus, error)
}
