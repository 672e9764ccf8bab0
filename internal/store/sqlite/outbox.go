package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mailpouch/mailpouch/internal/outbox"
)

// Enqueue makes a remote-mirroring job durable. The external work
// scheduler drains the outbox table via ListPendingJobs/DeleteJob.
func (s *DB) Enqueue(ctx context.Context, job outbox.Job) error {
	idsJSON, err := json.Marshal(job.IDs)
	if err != nil {
		return fmt.Errorf("failed to marshal job ids: %w", err)
	}
	paramsJSON, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal job params: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, user_id, kind, ids, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.Kind, string(idsJSON), string(paramsJSON),
		job.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// ListPendingJobs returns a user's enqueued jobs in enqueue order.
func (s *DB) ListPendingJobs(ctx context.Context, userID string) ([]outbox.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, ids, params, created_at
		FROM outbox WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []outbox.Job
	for rows.Next() {
		var j outbox.Job
		var idsJSON, paramsJSON string
		var createdAt int64
		if err := rows.Scan(&j.ID, &j.UserID, &j.Kind, &idsJSON, &paramsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &j.IDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job ids: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &j.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job params: %w", err)
		}
		j.CreatedAt = time.Unix(createdAt, 0).UTC()
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob removes a delivered job from the outbox.
func (s *DB) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}
