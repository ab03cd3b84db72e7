package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, kind, trigger_type, topic_id, content_id, status, current_stage, stages_completed_json, stages_failed_json, error_message, started_at, completed_at, updated_at"

// CreateRun inserts a new pipeline run in running status at the given
// initial stage and returns the stored record.
func (s *Store) CreateRun(ctx context.Context, kind string, trigger TriggerType, initialStage string, topicID int64) (*PipelineRun, error) {
	now := timestamp()
	id := uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_runs (
            id, kind, trigger_type, topic_id, status, current_stage, started_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		kind,
		trigger,
		topicID,
		RunRunning,
		initialStage,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pipeline run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// GetRun fetches a pipeline run by identifier. Returns nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*PipelineRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// UpdateRun persists changes to an existing run. Terminal runs are
// immutable; attempting to update one is rejected.
func (s *Store) UpdateRun(ctx context.Context, run *PipelineRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	current, err := s.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("run %s not found", run.ID)
	}
	if current.Status.Terminal() {
		return fmt.Errorf("run %s is terminal (%s)", run.ID, current.Status)
	}

	completed, err := marshalStrings(run.StagesCompleted)
	if err != nil {
		return fmt.Errorf("marshal completed stages: %w", err)
	}
	failed, err := marshalStrings(run.StagesFailed)
	if err != nil {
		return fmt.Errorf("marshal failed stages: %w", err)
	}
	run.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE pipeline_runs
         SET topic_id = ?, content_id = ?, status = ?, current_stage = ?,
             stages_completed_json = ?, stages_failed_json = ?, error_message = ?,
             completed_at = ?, updated_at = ?
         WHERE id = ?`,
		run.TopicID,
		run.ContentID,
		run.Status,
		run.CurrentStage,
		completed,
		failed,
		nullableString(run.ErrorMessage),
		nullableTime(run.CompletedAt),
		run.UpdatedAt.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ActiveRunForTopic returns the running run for a topic, or nil. Used to
// enforce at-most-one active run per topic.
func (s *Store) ActiveRunForTopic(ctx context.Context, topicID int64) (*PipelineRun, error) {
	if topicID == 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE topic_id = ? AND status = ? ORDER BY started_at LIMIT 1`,
		topicID,
		RunRunning,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active run for topic: %w", err)
	}
	return run, nil
}

// ListRuns returns runs filtered by status set (or all when none given),
// newest first, up to limit.
func (s *Store) ListRuns(ctx context.Context, limit int, statuses ...RunStatus) ([]*PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	baseQuery := `SELECT ` + runColumns + ` FROM pipeline_runs`
	orderClause := ` ORDER BY started_at DESC LIMIT ?`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause, limit)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses)+1)
		for _, status := range statuses {
			args = append(args, status)
		}
		args = append(args, limit)
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StaleRuns returns runs still marked running whose last update predates
// the cutoff. These were interrupted mid-stage and are recoverable via
// advance or heal.
func (s *Store) StaleRuns(ctx context.Context, cutoff time.Time) ([]*PipelineRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE status = ? AND updated_at < ? ORDER BY started_at`,
		RunRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("stale runs: %w", err)
	}
	defer rows.Close()

	var runs []*PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (RunStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM pipeline_runs GROUP BY status`)
	if err != nil {
		return RunStats{}, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := RunStats{}
	for rows.Next() {
		var status RunStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return RunStats{}, err
		}
		stats.Total += count
		switch status {
		case RunRunning:
			stats.Running += count
		case RunCompleted:
			stats.Completed += count
		case RunFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*PipelineRun, error) {
	var (
		id           string
		kind         string
		trigger      string
		topicID      int64
		contentID    int64
		status       string
		currentStage string
		completedRaw sql.NullString
		failedRaw    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		completedAt  sql.NullString
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id, &kind, &trigger, &topicID, &contentID, &status, &currentStage,
		&completedRaw, &failedRaw, &errorMessage, &startedRaw, &completedAt, &updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &PipelineRun{
		ID:           id,
		Kind:         kind,
		TriggerType:  TriggerType(trigger),
		TopicID:      topicID,
		ContentID:    contentID,
		Status:       RunStatus(status),
		CurrentStage: currentStage,
		ErrorMessage: errorMessage.String,
		CompletedAt:  parseTimePtr(completedAt),
	}
	if completedRaw.Valid && completedRaw.String != "" {
		if err := json.Unmarshal([]byte(completedRaw.String), &run.StagesCompleted); err != nil {
			return nil, fmt.Errorf("unmarshal completed stages: %w", err)
		}
	}
	if failedRaw.Valid && failedRaw.String != "" {
		if err := json.Unmarshal([]byte(failedRaw.String), &run.StagesFailed); err != nil {
			return nil, fmt.Errorf("unmarshal failed stages: %w", err)
		}
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}
