package stages_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pressline/internal/logging"
	"pressline/internal/services"
	"pressline/internal/services/audiogen"
	"pressline/internal/services/mediagen"
	"pressline/internal/services/wordpress"
	"pressline/internal/stage"
	"pressline/internal/stages"
	"pressline/internal/store"
	"pressline/internal/testsupport"
)

type fakeTextGen struct {
	configured bool
	responses  []string
	calls      int
	err        error
}

func (f *fakeTextGen) Configured() bool { return f.configured }

func (f *fakeTextGen) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}

type fakeWordPress struct {
	nextID    int64
	published []int64
	createErr error
}

func (f *fakeWordPress) CreateDraftPost(ctx context.Context, title, content, category string) (*wordpress.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	return &wordpress.Post{
		ID:     f.nextID,
		Status: "draft",
		Link:   fmt.Sprintf("http://wordpress.test/?p=%d", f.nextID),
	}, nil
}

func (f *fakeWordPress) PublishPost(ctx context.Context, postID int64) (*wordpress.Post, error) {
	f.published = append(f.published, postID)
	return &wordpress.Post{ID: postID, Status: "publish", Link: fmt.Sprintf("http://wordpress.test/?p=%d", postID)}, nil
}

func (f *fakeWordPress) GetPost(ctx context.Context, postID int64) (*wordpress.Post, error) {
	return &wordpress.Post{ID: postID, Status: "draft"}, nil
}

type fakeMediaGen struct {
	submits int
	fail    bool
}

func (f *fakeMediaGen) Submit(ctx context.Context, spec mediagen.JobSpec) (string, error) {
	f.submits++
	if f.fail {
		return "", errors.New("provider down")
	}
	return fmt.Sprintf("task-%d", f.submits), nil
}

func (f *fakeMediaGen) Await(ctx context.Context, taskID string) (*mediagen.JobStatus, error) {
	return &mediagen.JobStatus{
		TaskID:    taskID,
		State:     mediagen.StateSucceeded,
		ResultURL: "http://cdn.test/" + taskID,
	}, nil
}

type fakeAudioGen struct{}

func (fakeAudioGen) Submit(ctx context.Context, script string) (string, error) { return "audio-1", nil }

func (fakeAudioGen) Await(ctx context.Context, taskID string) (*audiogen.JobStatus, error) {
	return &audiogen.JobStatus{TaskID: taskID, State: audiogen.StateSucceeded, AudioURL: "http://cdn.test/audio-1.mp3"}, nil
}

const hebrewBody = "מאמר ארוך בעברית על תחבורה ציבורית בעיר"

func TestTopicSelectorPicksApprovedBacklog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Backlog", "backlog")
	run, err := st.CreateRun(ctx, "content", store.TriggerManual, "topic-selection", 0)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	text := &fakeTextGen{configured: true}
	selector := stages.NewTopicSelector(cfg, st, logging.NewNop(), text)
	ex := &stage.Exchange{Run: run}
	if err := selector.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := selector.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Topic == nil || ex.Topic.ID != topic.ID {
		t.Fatalf("selected topic = %+v, want %d", ex.Topic, topic.ID)
	}
	if run.TopicID != topic.ID {
		t.Fatalf("run topic = %d", run.TopicID)
	}
	if text.calls != 0 {
		t.Fatal("backlog pick should not call the generator")
	}

	selected, err := st.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if selected.LastUsedAt == nil {
		t.Fatal("selection did not touch last_used_at")
	}
}

func TestTopicSelectorProposesWhenBacklogEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "content", store.TriggerManual, "topic-selection", 0)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	text := &fakeTextGen{
		configured: true,
		responses: []string{
			`Here you go: {"title_he":"חדשנות עירונית","title_en":"Urban Innovation","keywords":["city","innovation"]}`,
		},
	}
	selector := stages.NewTopicSelector(cfg, st, logging.NewNop(), text)
	ex := &stage.Exchange{Run: run}
	if err := selector.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Topic == nil || ex.Topic.TitleEn != "Urban Innovation" {
		t.Fatalf("proposed topic = %+v", ex.Topic)
	}
	if len(ex.Topic.Keywords) != 2 {
		t.Fatalf("keywords = %v", ex.Topic.Keywords)
	}
}

func TestHebrewGeneratorCreatesContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Generate", "transit")
	run, err := st.CreateRun(ctx, "content", store.TriggerManual, "hebrew-generation", topic.ID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	text := &fakeTextGen{configured: true, responses: []string{hebrewBody}}
	generator := stages.NewHebrewGenerator(cfg, st, logging.NewNop(), text)
	ex := &stage.Exchange{Run: run, Topic: topic}
	if err := generator.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := generator.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Content == nil || ex.Content.BodyHe != hebrewBody {
		t.Fatalf("content = %+v", ex.Content)
	}
	if ex.Content.WordCount == 0 {
		t.Fatal("word count not computed")
	}
	if run.ContentID != ex.Content.ID {
		t.Fatalf("run content = %d", run.ContentID)
	}
}

func TestHebrewGeneratorRejectsNonHebrewOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	topic := testsupport.NewTopic(t, st, "English only", "bad")

	text := &fakeTextGen{configured: true, responses: []string{"English output only"}}
	generator := stages.NewHebrewGenerator(cfg, st, logging.NewNop(), text)
	err := generator.Execute(context.Background(), &stage.Exchange{Topic: topic})
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("error = %v, want external", err)
	}
}

func TestMediaDrafterCreatesDraftAndSurvivesAssetFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Draft", "draft")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentDraft)

	wp := &fakeWordPress{}
	media := &fakeMediaGen{fail: true}
	drafter := stages.NewMediaDrafter(cfg, st, logging.NewNop(), wp, media)
	ex := &stage.Exchange{Topic: topic, Content: piece}
	if err := drafter.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := drafter.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if piece.WPPostID == 0 || piece.WPPostURL == "" {
		t.Fatalf("draft not recorded: %+v", piece)
	}
	if piece.Status != store.ContentReady {
		t.Fatalf("status = %s", piece.Status)
	}
	// Asset generation failed but the stage still succeeded.
	if piece.FeaturedImageURL != "" || piece.VideoURL != "" {
		t.Fatalf("failed assets recorded: %+v", piece)
	}
}

func TestHebrewPublisherRequiresDraft(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Publish", "publish")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentDraft)

	wp := &fakeWordPress{}
	publisher := stages.NewHebrewPublisher(cfg, st, logging.NewNop(), wp)

	err := publisher.Prepare(ctx, &stage.Exchange{Topic: topic, Content: piece})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("prepare without draft error = %v, want validation", err)
	}

	piece.WPPostID = 11
	ex := &stage.Exchange{Topic: topic, Content: piece}
	if err := publisher.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := publisher.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if piece.Status != store.ContentPublished {
		t.Fatalf("status = %s", piece.Status)
	}
	if len(wp.published) != 1 || wp.published[0] != 11 {
		t.Fatalf("published = %v", wp.published)
	}

	// Re-running on a published piece is a no-op.
	if err := publisher.Execute(ctx, ex); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if len(wp.published) != 1 {
		t.Fatalf("republished: %v", wp.published)
	}
}

func TestEnglishPublisherTranslatesAndPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Translate", "translate")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentPublished)

	wp := &fakeWordPress{}
	text := &fakeTextGen{configured: true, responses: []string{"The English rendering", "Short teaser"}}
	media := &fakeMediaGen{}
	publisher := stages.NewEnglishPublisher(cfg, st, logging.NewNop(), wp, text, media)
	ex := &stage.Exchange{Topic: topic, Content: piece}
	if err := publisher.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := publisher.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if piece.BodyEn != "The English rendering" {
		t.Fatalf("BodyEn = %q", piece.BodyEn)
	}
	if piece.EnPostID == 0 {
		t.Fatal("english post not recorded")
	}
	if piece.SocialImageURL == "" {
		t.Fatal("social image not attached")
	}
	if len(wp.published) != 1 {
		t.Fatalf("published = %v", wp.published)
	}
}

func TestPodcastProducerSynthesizesAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Podcast", "podcast")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentPublished)

	text := &fakeTextGen{configured: true, responses: []string{"תסריט פודקאסט"}}
	producer := stages.NewPodcastProducer(cfg, st, logging.NewNop(), text, fakeAudioGen{})
	ex := &stage.Exchange{}
	if err := producer.Prepare(ctx, ex); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if ex.Content == nil || ex.Content.ID != piece.ID {
		t.Fatalf("prepare picked %+v, want piece %d", ex.Content, piece.ID)
	}
	if err := producer.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Content.AudioURL == "" {
		t.Fatal("audio url not recorded")
	}
}

func TestSEOAuditorRewritesBelowThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSEOThreshold(80))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Audit", "תחבורה")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentPublished)

	rewritten := "מאמר משופר על תחבורה " + hebrewBody
	text := &fakeTextGen{configured: true, responses: []string{rewritten}}
	auditor := stages.NewSEOAuditor(cfg, st, logging.NewNop(), text)
	ex := &stage.Exchange{Topic: topic, Content: piece}
	if err := auditor.Execute(ctx, ex); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if text.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", text.calls)
	}
	if piece.BodyHe != rewritten {
		t.Fatalf("body not rewritten: %q", piece.BodyHe)
	}
	if piece.SEOScore == 0 {
		t.Fatal("score not recomputed")
	}
}
