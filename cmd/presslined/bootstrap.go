package main

import (
	"log/slog"

	"pressline/internal/approval"
	"pressline/internal/config"
	"pressline/internal/daemon"
	"pressline/internal/healer"
	"pressline/internal/orchestrator"
	"pressline/internal/services/audiogen"
	"pressline/internal/services/mediagen"
	"pressline/internal/services/slack"
	"pressline/internal/services/textgen"
	"pressline/internal/services/wordpress"
	"pressline/internal/stages"
	"pressline/internal/store"
	"pressline/internal/webhook"
)

// buildDaemon wires every stage executor, the approval gate, the healer,
// and the webhook API into one daemon instance.
func buildDaemon(cfg *config.Config, st *store.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	wp := wordpress.NewClient(cfg.WordPress)
	text := textgen.NewClient(cfg.TextGen)
	media := mediagen.NewClient(cfg.MediaGen)
	audio := audiogen.NewClient(cfg.AudioGen)

	orch := orchestrator.New(cfg, st, logger, orchestrator.Handlers{
		TopicSelection:   stages.NewTopicSelector(cfg, st, logger, text),
		HebrewGeneration: stages.NewHebrewGenerator(cfg, st, logger, text),
		WPDraftVideo:     stages.NewMediaDrafter(cfg, st, logger, wp, media),
		HebrewPublish:    stages.NewHebrewPublisher(cfg, st, logger, wp),
		EnglishPublish:   stages.NewEnglishPublisher(cfg, st, logger, wp, text, media),
		Podcast:          stages.NewPodcastProducer(cfg, st, logger, text, audio),
		SEOAudit:         stages.NewSEOAuditor(cfg, st, logger, text),
	})
	gate := approval.NewGate(cfg, st, orch, slack.NewService(cfg), logger)
	orch.SetGate(gate)
	h := healer.New(cfg, st, orch, logger)
	api := webhook.NewServer(cfg, st, orch, gate, h, logger)

	return daemon.New(cfg, st, logger, orch, h, api)
}
