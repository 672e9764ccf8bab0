package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/store"
)

// UpsertLabel inserts or updates a label.
func (s *DB) UpsertLabel(ctx context.Context, label *domain.Label) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, user_id, name, type, exclusive, color)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			name      = excluded.name,
			type      = excluded.type,
			exclusive = excluded.exclusive,
			color     = excluded.color`,
		label.ID, label.UserID, label.Name, label.Type, label.Exclusive, label.Color,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert label: %w", err)
	}
	s.notifier.Notify(label.UserID)
	return nil
}

// GetLabel retrieves a single label by id.
func (s *DB) GetLabel(ctx context.Context, userID, id string) (*domain.Label, error) {
	var l domain.Label
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, exclusive, color FROM labels WHERE user_id = ? AND id = ?`,
		userID, id,
	).Scan(&l.ID, &l.UserID, &l.Name, &l.Type, &l.Exclusive, &l.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("label %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get label %s: %w", id, err)
	}
	return &l, nil
}

// ListLabels returns all labels for a user, ordered by name.
func (s *DB) ListLabels(ctx context.Context, userID string) ([]domain.Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, exclusive, color FROM labels WHERE user_id = ? ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Type, &l.Exclusive, &l.Color); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}

	return labels, nil
}
