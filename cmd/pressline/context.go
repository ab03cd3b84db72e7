package main

import (
	"strings"
	"sync"

	"log/slog"

	"pressline/internal/approval"
	"pressline/internal/config"
	"pressline/internal/healer"
	"pressline/internal/logging"
	"pressline/internal/orchestrator"
	"pressline/internal/services/audiogen"
	"pressline/internal/services/mediagen"
	"pressline/internal/services/slack"
	"pressline/internal/services/textgen"
	"pressline/internal/services/wordpress"
	"pressline/internal/stages"
	"pressline/internal/store"
)

// commandContext lazily loads configuration and opens shared components
// so commands that never touch the store (config init, help) stay cheap.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *store.Store
	storeErr  error

	wiringOnce sync.Once
	logger     *slog.Logger
	orch       *orchestrator.Orchestrator
	gate       *approval.Gate
	healer     *healer.Healer
	wiringErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.storeOnce.Do(func() {
		c.store, c.storeErr = store.Open(cfg)
	})
	return c.store, c.storeErr
}

// ensureComponents builds the orchestrator, gate, and healer over the
// shared store. CLI output stays clean; operational logging goes to the
// log file only when configured.
func (c *commandContext) ensureComponents() error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := c.ensureStore()
	if err != nil {
		return err
	}
	c.wiringOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger

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

		c.orch = orch
		c.gate = gate
		c.healer = healer.New(cfg, st, orch, logger)
	})
	return c.wiringErr
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}
