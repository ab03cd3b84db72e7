package store_test

import (
	"context"
	"testing"

	"pressline/internal/store"
	"pressline/internal/testsupport"
)

func TestHealingMarkerIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Elections", "elections")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentDraft)

	acquired, err := st.AcquireHealing(ctx, piece.ID)
	if err != nil {
		t.Fatalf("AcquireHealing: %v", err)
	}
	if !acquired {
		t.Fatal("first acquire should succeed")
	}

	again, err := st.AcquireHealing(ctx, piece.ID)
	if err != nil {
		t.Fatalf("AcquireHealing repeat: %v", err)
	}
	if again {
		t.Fatal("second acquire should be refused while marker is held")
	}

	if err := st.ReleaseHealing(ctx, piece.ID); err != nil {
		t.Fatalf("ReleaseHealing: %v", err)
	}
	released, err := st.AcquireHealing(ctx, piece.ID)
	if err != nil {
		t.Fatalf("AcquireHealing after release: %v", err)
	}
	if !released {
		t.Fatal("acquire after release should succeed")
	}
}

func TestContentRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	topic := testsupport.NewTopic(t, st, "Health", "health")
	piece := testsupport.NewContent(t, st, topic.ID, store.ContentDraft)

	piece.BodyEn = "Sample English body"
	piece.WPPostID = 42
	piece.WPPostURL = "http://wordpress.test/?p=42"
	piece.SEOScore = 77
	piece.Status = store.ContentPublished
	if err := st.UpdateContentPiece(ctx, piece); err != nil {
		t.Fatalf("UpdateContentPiece: %v", err)
	}

	loaded, err := st.GetContentPiece(ctx, piece.ID)
	if err != nil {
		t.Fatalf("GetContentPiece: %v", err)
	}
	if loaded.BodyEn != piece.BodyEn || loaded.WPPostID != 42 || loaded.SEOScore != 77 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Status != store.ContentPublished {
		t.Fatalf("status = %s", loaded.Status)
	}

	byTopic, err := st.ContentByTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("ContentByTopic: %v", err)
	}
	if byTopic == nil || byTopic.ID != piece.ID {
		t.Fatalf("ContentByTopic = %+v", byTopic)
	}
}
