package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/store"
	"pressline/internal/textutil"
)

// ProposeWithFeedback turns reviewer feedback on a rejected piece into a
// fresh topic proposal. The new topic starts in proposed status with
// keywords derived from the feedback text and waits for editorial
// approval before any run can pick it up.
func (o *Orchestrator) ProposeWithFeedback(ctx context.Context, feedback string) (*store.Topic, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, services.Wrap(services.ErrValidation, "orchestrator", "propose", "feedback is empty", nil)
	}
	keywords := textutil.KeywordsFromFeedback(feedback, 8)
	topic := &store.Topic{
		TitleEn:  textutil.TitleFromKeywords(keywords),
		Keywords: keywords,
		Priority: store.PriorityMedium,
		Status:   store.TopicProposed,
	}
	if textutil.HasHebrew(feedback) {
		topic.TitleHe = topic.TitleEn
		topic.TitleEn = ""
	}
	created, err := o.store.CreateTopic(ctx, topic)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "propose", "create topic", err)
	}
	entry := &store.LogEntry{
		TopicID: created.ID,
		Level:   store.LogAgent,
		Message: fmt.Sprintf("proposed topic from feedback: %s", textutil.Excerpt(feedback, 16)),
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		logging.WithContext(ctx, o.logger).Warn("ledger append failed", logging.Error(err))
	}
	logging.WithContext(ctx, o.logger).Info("topic proposed from feedback",
		logging.Int64("topic_id", created.ID),
		logging.Any("keywords", created.Keywords))
	return created, nil
}
