package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AppendLog records one pipeline log entry. Entries are append-only.
func (s *Store) AppendLog(ctx context.Context, entry *LogEntry) error {
	if entry == nil {
		return errors.New("log entry is nil")
	}
	if strings.TrimSpace(entry.Message) == "" {
		return errors.New("log entry requires a message")
	}
	if entry.Level == "" {
		entry.Level = LogInfo
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_logs (run_id, topic_id, level, message, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.TopicID,
		entry.Level,
		entry.Message,
		timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// QueryLogs returns log entries most-recent-first, up to limit. A zero
// topicID returns the global tail across all runs.
func (s *Store) QueryLogs(ctx context.Context, topicID int64, limit int) ([]*LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, run_id, topic_id, level, message, created_at FROM pipeline_logs`
	args := make([]any, 0, 2)
	if topicID != 0 {
		query += ` WHERE topic_id = ?`
		args = append(args, topicID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			level      string
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.TopicID, &level, &entry.Message, &createdRaw); err != nil {
			return nil, err
		}
		entry.Level = LogLevel(level)
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// RunLogs returns the log entries for a single run, most-recent-first.
func (s *Store) RunLogs(ctx context.Context, runID string, limit int) ([]*LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, topic_id, level, message, created_at FROM pipeline_logs WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query run logs: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var (
			entry      LogEntry
			level      string
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.TopicID, &level, &entry.Message, &createdRaw); err != nil {
			return nil, err
		}
		entry.Level = LogLevel(level)
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
