package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pressline/internal/services"
)

const approvalColumns = "id, approval_type, run_id, entity_id, status, feedback, responder_id, responded_at, created_at"

// CreateApproval inserts a pending approval and returns the stored record.
func (s *Store) CreateApproval(ctx context.Context, approvalType ApprovalType, runID string, entityID int64) (*Approval, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO approvals (id, approval_type, run_id, entity_id, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		approvalType,
		runID,
		entityID,
		ApprovalPending,
		timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert approval: %w", err)
	}
	return s.GetApproval(ctx, id)
}

// GetApproval fetches an approval by identifier. Returns nil when absent.
func (s *Store) GetApproval(ctx context.Context, id string) (*Approval, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE id = ?`, id)
	approval, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return approval, nil
}

// ResolveApproval transitions a pending approval to a terminal status
// exactly once. Resolving an already-terminal approval returns a conflict
// so double-publication races surface instead of being silently accepted.
func (s *Store) ResolveApproval(ctx context.Context, id string, decision ApprovalStatus, responderID, feedback string) (*Approval, error) {
	if !decision.Terminal() {
		return nil, services.Wrap(services.ErrValidation, "store", "resolve approval", fmt.Sprintf("decision %q is not terminal", decision), nil)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE approvals
         SET status = ?, responder_id = ?, feedback = ?, responded_at = ?
         WHERE id = ? AND status = ?`,
		decision,
		nullableString(responderID),
		nullableString(feedback),
		now.Format(time.RFC3339Nano),
		id,
		ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetApproval(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, services.Wrap(services.ErrNotFound, "store", "resolve approval", fmt.Sprintf("approval %s does not exist", id), nil)
		}
		return nil, services.Wrap(services.ErrConflict, "store", "resolve approval", fmt.Sprintf("approval %s already %s", id, existing.Status), nil)
	}
	return s.GetApproval(ctx, id)
}

// PendingApprovals returns unresolved approvals oldest first.
func (s *Store) PendingApprovals(ctx context.Context) ([]*Approval, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE status = ? ORDER BY created_at`,
		ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	return approvals, rows.Err()
}

func scanApproval(scanner interface{ Scan(dest ...any) error }) (*Approval, error) {
	var (
		id           string
		approvalType string
		runID        string
		entityID     int64
		status       string
		feedback     sql.NullString
		responderID  sql.NullString
		respondedAt  sql.NullString
		createdRaw   string
	)
	if err := scanner.Scan(&id, &approvalType, &runID, &entityID, &status, &feedback, &responderID, &respondedAt, &createdRaw); err != nil {
		return nil, err
	}

	approval := &Approval{
		ID:          id,
		Type:        ApprovalType(approvalType),
		RunID:       runID,
		EntityID:    entityID,
		Status:      ApprovalStatus(status),
		Feedback:    feedback.String,
		ResponderID: responderID.String,
		RespondedAt: parseTimePtr(respondedAt),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		approval.CreatedAt = created
	}
	return approval, nil
}
