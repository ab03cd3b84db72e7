package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"pressline/internal/config"
	"pressline/internal/logging"
	"pressline/internal/pipeline"
	"pressline/internal/services"
	"pressline/internal/stage"
	"pressline/internal/store"
	"pressline/internal/textutil"
)

const topicProposalSystem = "You plan editorial topics for a bilingual Hebrew/English publication. " +
	"Respond with a JSON object containing title_he, title_en, and keywords (array of strings)."

// TopicSelector picks the next approved topic for a run, falling back to
// proposing a fresh one through the text generator when the backlog is
// empty.
type TopicSelector struct {
	store   *store.Store
	cfg     *config.Config
	textgen TextGenerator
	logger  *slog.Logger
}

// NewTopicSelector constructs the topic selection stage handler.
func NewTopicSelector(cfg *config.Config, st *store.Store, logger *slog.Logger, textgen TextGenerator) *TopicSelector {
	return &TopicSelector{
		store:   st,
		cfg:     cfg,
		textgen: textgen,
		logger:  logging.NewComponentLogger(logger, "topic-selector"),
	}
}

func (t *TopicSelector) Prepare(ctx context.Context, ex *stage.Exchange) error {
	if ex.Run == nil {
		return services.Wrap(services.ErrValidation, "topic-selector", "prepare", "exchange missing run", nil)
	}
	return nil
}

func (t *TopicSelector) Execute(ctx context.Context, ex *stage.Exchange) error {
	logger := logging.WithContext(ctx, t.logger)
	if ex.Topic == nil {
		topic, err := t.store.NextTopicForSelection(ctx)
		if err != nil {
			return services.Wrap(services.ErrTransient, "topic-selector", "execute", "query topic backlog", err)
		}
		if topic == nil {
			topic, err = t.proposeTopic(ctx)
			if err != nil {
				return err
			}
			logger.Info("proposed fresh topic", logging.Int64("topic_id", topic.ID), logging.String("title", topic.TitleEn))
		}
		ex.Topic = topic
	}
	now := time.Now().UTC()
	ex.Topic.LastUsedAt = &now
	if err := t.store.UpdateTopic(ctx, ex.Topic); err != nil {
		return services.Wrap(services.ErrTransient, "topic-selector", "execute", "record topic selection", err)
	}
	if ex.Run != nil {
		ex.Run.TopicID = ex.Topic.ID
	}
	logger.Info("topic selected",
		logging.Int64("topic_id", ex.Topic.ID),
		logging.String("title_he", ex.Topic.TitleHe),
		logging.String("title_en", ex.Topic.TitleEn))
	return nil
}

func (t *TopicSelector) proposeTopic(ctx context.Context) (*store.Topic, error) {
	if t.textgen == nil || !t.textgen.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "topic-selector", "propose",
			"topic backlog empty and text generation is not configured", nil)
	}
	raw, err := t.textgen.Generate(ctx, topicProposalSystem,
		"Propose one timely article topic that has not been covered recently.")
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "topic-selector", "propose", "generate topic proposal", err)
	}
	proposal := struct {
		TitleHe  string   `json:"title_he"`
		TitleEn  string   `json:"title_en"`
		Keywords []string `json:"keywords"`
	}{}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &proposal); err != nil {
		return nil, services.Wrap(services.ErrExternal, "topic-selector", "propose",
			fmt.Sprintf("parse topic proposal: %s", textutil.Excerpt(raw, 12)), err)
	}
	if strings.TrimSpace(proposal.TitleHe) == "" && strings.TrimSpace(proposal.TitleEn) == "" {
		return nil, services.Wrap(services.ErrExternal, "topic-selector", "propose", "topic proposal missing titles", nil)
	}
	topic := &store.Topic{
		TitleHe:  strings.TrimSpace(proposal.TitleHe),
		TitleEn:  strings.TrimSpace(proposal.TitleEn),
		Keywords: proposal.Keywords,
		Priority: store.PriorityMedium,
		Status:   store.TopicApproved,
	}
	return t.store.CreateTopic(ctx, topic)
}

func (t *TopicSelector) HealthCheck(ctx context.Context) stage.Health {
	if t.store == nil {
		return stage.Unhealthy(pipeline.StageTopicSelection, "store unavailable")
	}
	return stage.Healthy(pipeline.StageTopicSelection)
}

// extractJSON trims prose the generator sometimes wraps around a JSON
// payload, returning the outermost object.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
