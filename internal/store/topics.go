package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const topicColumns = "id, title_he, title_en, keywords_json, priority, status, last_used_at, created_at, updated_at"

// CreateTopic inserts a new topic and returns the stored record.
func (s *Store) CreateTopic(ctx context.Context, topic *Topic) (*Topic, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	if topic.Priority == "" {
		topic.Priority = PriorityMedium
	}
	if topic.Status == "" {
		topic.Status = TopicProposed
	}
	keywords, err := marshalStrings(topic.Keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal keywords: %w", err)
	}

	now := timestamp()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO topics (title_he, title_en, keywords_json, priority, status, last_used_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		topic.TitleHe,
		nullableString(topic.TitleEn),
		keywords,
		topic.Priority,
		topic.Status,
		nullableTime(topic.LastUsedAt),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTopic(ctx, id)
}

// GetTopic fetches a topic by identifier. Returns nil when absent.
func (s *Store) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)
	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}
	return topic, nil
}

// UpdateTopic persists changes to an existing topic.
func (s *Store) UpdateTopic(ctx context.Context, topic *Topic) error {
	if topic == nil {
		return errors.New("topic is nil")
	}
	keywords, err := marshalStrings(topic.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE topics
         SET title_he = ?, title_en = ?, keywords_json = ?, priority = ?, status = ?,
             last_used_at = ?, updated_at = ?
         WHERE id = ?`,
		topic.TitleHe,
		nullableString(topic.TitleEn),
		keywords,
		topic.Priority,
		topic.Status,
		nullableTime(topic.LastUsedAt),
		timestamp(),
		topic.ID,
	)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

// TopicsByStatus returns topics matching a status ordered by creation time.
func (s *Store) TopicsByStatus(ctx context.Context, status TopicStatus) ([]*Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query topics by status: %w", err)
	}
	defer rows.Close()
	return collectTopics(rows)
}

// NextTopicForSelection returns the approved topic least recently used,
// preferring higher priority. Returns nil when no approved topic exists.
func (s *Store) NextTopicForSelection(ctx context.Context) (*Topic, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+topicColumns+` FROM topics
         WHERE status = ?
         ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
                  last_used_at IS NOT NULL, last_used_at, id
         LIMIT 1`,
		TopicApproved,
	)
	topic, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next topic: %w", err)
	}
	return topic, nil
}

func collectTopics(rows *sql.Rows) ([]*Topic, error) {
	var topics []*Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

func scanTopic(scanner interface{ Scan(dest ...any) error }) (*Topic, error) {
	var (
		id         int64
		titleHe    string
		titleEn    sql.NullString
		keywords   sql.NullString
		priority   string
		status     string
		lastUsed   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &titleHe, &titleEn, &keywords, &priority, &status, &lastUsed, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	topic := &Topic{
		ID:         id,
		TitleHe:    titleHe,
		TitleEn:    titleEn.String,
		Priority:   TopicPriority(priority),
		Status:     TopicStatus(status),
		LastUsedAt: parseTimePtr(lastUsed),
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &topic.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		topic.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		topic.UpdatedAt = updated
	}
	return topic, nil
}

func marshalStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
