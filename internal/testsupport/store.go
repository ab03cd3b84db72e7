package testsupport

import (
	"context"
	"testing"

	"pressline/internal/config"
	"pressline/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTopic creates an approved topic for tests using the provided store.
func NewTopic(t testing.TB, st *store.Store, titleEn string, keywords ...string) *store.Topic {
	t.Helper()

	topic, err := st.CreateTopic(context.Background(), &store.Topic{
		TitleHe:  "נושא לדוגמה",
		TitleEn:  titleEn,
		Keywords: keywords,
		Priority: store.PriorityMedium,
		Status:   store.TopicApproved,
	})
	if err != nil {
		t.Fatalf("store.CreateTopic: %v", err)
	}
	return topic
}

// NewContent creates a content piece for tests using the provided store.
func NewContent(t testing.TB, st *store.Store, topicID int64, status store.ContentStatus) *store.ContentPiece {
	t.Helper()

	piece, err := st.CreateContentPiece(context.Background(), &store.ContentPiece{
		TopicID: topicID,
		BodyHe:  "גוף מאמר לדוגמה בעברית",
		Status:  status,
	})
	if err != nil {
		t.Fatalf("store.CreateContentPiece: %v", err)
	}
	return piece
}
