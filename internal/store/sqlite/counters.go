package sqlite

import (
	"context"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
)

// ReplaceUnreadCounters swaps in a freshly fetched set of unread counters
// for a user.
func (s *DB) ReplaceUnreadCounters(ctx context.Context, userID string, counters []domain.UnreadCounter) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM unread_counters WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear unread counters: %w", err)
	}
	for _, c := range counters {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO unread_counters (user_id, label_id, type, count)
			VALUES (?, ?, ?, ?)`,
			userID, c.LabelID, c.Type, c.Count); err != nil {
			return fmt.Errorf("failed to insert unread counter: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unread counters: %w", err)
	}
	s.notifier.Notify(userID)
	return nil
}

// ListUnreadCounters returns the cached unread counters for a user.
func (s *DB) ListUnreadCounters(ctx context.Context, userID string) ([]domain.UnreadCounter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label_id, type, count FROM unread_counters WHERE user_id = ? ORDER BY label_id, type`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread counters: %w", err)
	}
	defer rows.Close()

	var counters []domain.UnreadCounter
	for rows.Next() {
		c := domain.UnreadCounter{UserID: userID}
		if err := rows.Scan(&c.LabelID, &c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan unread counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unread counters: %w", err)
	}
	return counters, nil
}
