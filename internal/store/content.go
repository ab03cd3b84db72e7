package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const contentColumns = "id, topic_id, body_he, body_en, word_count, seo_score, status, featured_image_url, video_url, social_image_url, audio_url, wp_post_id, wp_post_url, en_post_id, healing_since, created_at, updated_at"

// CreateContentPiece inserts a new content piece for a topic.
func (s *Store) CreateContentPiece(ctx context.Context, piece *ContentPiece) (*ContentPiece, error) {
	if piece == nil {
		return nil, errors.New("content piece is nil")
	}
	if piece.TopicID == 0 {
		return nil, errors.New("content piece requires a topic id")
	}
	if piece.Status == "" {
		piece.Status = ContentDraft
	}

	now := timestamp()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO content_pieces (
            topic_id, body_he, body_en, word_count, seo_score, status,
            featured_image_url, video_url, social_image_url, audio_url,
            wp_post_id, wp_post_url, en_post_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		piece.TopicID,
		nullableString(piece.BodyHe),
		nullableString(piece.BodyEn),
		piece.WordCount,
		piece.SEOScore,
		piece.Status,
		nullableString(piece.FeaturedImageURL),
		nullableString(piece.VideoURL),
		nullableString(piece.SocialImageURL),
		nullableString(piece.AudioURL),
		piece.WPPostID,
		nullableString(piece.WPPostURL),
		piece.EnPostID,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert content piece: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetContentPiece(ctx, id)
}

// GetContentPiece fetches a content piece by identifier. Returns nil when absent.
func (s *Store) GetContentPiece(ctx context.Context, id int64) (*ContentPiece, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_pieces WHERE id = ?`, id)
	piece, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content piece: %w", err)
	}
	return piece, nil
}

// ContentByTopic returns the most recent content piece for a topic, or nil.
func (s *Store) ContentByTopic(ctx context.Context, topicID int64) (*ContentPiece, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+contentColumns+` FROM content_pieces WHERE topic_id = ? ORDER BY id DESC LIMIT 1`,
		topicID,
	)
	piece, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("content by topic: %w", err)
	}
	return piece, nil
}

// UpdateContentPiece persists changes to an existing content piece.
func (s *Store) UpdateContentPiece(ctx context.Context, piece *ContentPiece) error {
	if piece == nil {
		return errors.New("content piece is nil")
	}
	piece.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE content_pieces
         SET body_he = ?, body_en = ?, word_count = ?, seo_score = ?, status = ?,
             featured_image_url = ?, video_url = ?, social_image_url = ?, audio_url = ?,
             wp_post_id = ?, wp_post_url = ?, en_post_id = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(piece.BodyHe),
		nullableString(piece.BodyEn),
		piece.WordCount,
		piece.SEOScore,
		piece.Status,
		nullableString(piece.FeaturedImageURL),
		nullableString(piece.VideoURL),
		nullableString(piece.SocialImageURL),
		nullableString(piece.AudioURL),
		piece.WPPostID,
		nullableString(piece.WPPostURL),
		piece.EnPostID,
		piece.UpdatedAt.Format(time.RFC3339Nano),
		piece.ID,
	)
	if err != nil {
		return fmt.Errorf("update content piece: %w", err)
	}
	return nil
}

// RecentContent returns the newest content pieces up to limit.
func (s *Store) RecentContent(ctx context.Context, limit int) ([]*ContentPiece, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+contentColumns+` FROM content_pieces ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent content: %w", err)
	}
	defer rows.Close()

	var pieces []*ContentPiece
	for rows.Next() {
		piece, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, piece)
	}
	return pieces, rows.Err()
}

// AcquireHealing claims the exclusive healing marker for a content piece.
// Returns false when another healer already holds the marker.
func (s *Store) AcquireHealing(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE content_pieces SET healing_since = ?, updated_at = ? WHERE id = ? AND healing_since IS NULL`,
		timestamp(),
		timestamp(),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("acquire healing marker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseHealing clears the healing marker regardless of heal outcome.
func (s *Store) ReleaseHealing(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE content_pieces SET healing_since = NULL, updated_at = ? WHERE id = ?`,
		timestamp(),
		id,
	)
	if err != nil {
		return fmt.Errorf("release healing marker: %w", err)
	}
	return nil
}

func scanContent(scanner interface{ Scan(dest ...any) error }) (*ContentPiece, error) {
	var (
		id           int64
		topicID      int64
		bodyHe       sql.NullString
		bodyEn       sql.NullString
		wordCount    int
		seoScore     int
		status       string
		featuredURL  sql.NullString
		videoURL     sql.NullString
		socialURL    sql.NullString
		audioURL     sql.NullString
		wpPostID     int64
		wpPostURL    sql.NullString
		enPostID     int64
		healingSince sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id, &topicID, &bodyHe, &bodyEn, &wordCount, &seoScore, &status,
		&featuredURL, &videoURL, &socialURL, &audioURL,
		&wpPostID, &wpPostURL, &enPostID, &healingSince, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	piece := &ContentPiece{
		ID:               id,
		TopicID:          topicID,
		BodyHe:           bodyHe.String,
		BodyEn:           bodyEn.String,
		WordCount:        wordCount,
		SEOScore:         seoScore,
		Status:           ContentStatus(status),
		FeaturedImageURL: featuredURL.String,
		VideoURL:         videoURL.String,
		SocialImageURL:   socialURL.String,
		AudioURL:         audioURL.String,
		WPPostID:         wpPostID,
		WPPostURL:        wpPostURL.String,
		EnPostID:         enPostID,
		HealingSince:     parseTimePtr(healingSince),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		piece.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		piece.UpdatedAt = updated
	}
	return piece, nil
}
