package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/store"
)

// GetSyncState retrieves the sync state for a user.
// If no state exists, it returns an empty SyncState with the UserID set.
func (s *DB) GetSyncState(ctx context.Context, userID string) (*store.SyncState, error) {
	var state store.SyncState
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, history_id, last_sync FROM sync_state WHERE user_id = ?`,
		userID,
	).Scan(&state.UserID, &state.HistoryID, &state.LastSync)

	if errors.Is(err, sql.ErrNoRows) {
		return &store.SyncState{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for %s: %w", userID, err)
	}
	return &state, nil
}

// SetSyncState inserts or updates the sync state for a user.
func (s *DB) SetSyncState(ctx context.Context, state *store.SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, history_id, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			history_id = excluded.history_id,
			last_sync  = excluded.last_sync`,
		state.UserID, state.HistoryID, state.LastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to set sync state for %s: %w", state.UserID, err)
	}
	return nil
}
