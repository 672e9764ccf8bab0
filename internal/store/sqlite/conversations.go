package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/store"
)

func upsertConversationTx(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, subject, num_messages, num_unread,
			num_attachments, size, order_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			subject         = excluded.subject,
			num_messages    = excluded.num_messages,
			num_unread      = excluded.num_unread,
			num_attachments = excluded.num_attachments,
			size            = excluded.size,
			order_time      = excluded.order_time`,
		conv.ID, conv.UserID, conv.Subject, conv.NumMessages, conv.NumUnread,
		conv.NumAttachments, conv.Size, conv.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	// Replace the per-label context rows wholesale; the Labels slice is the
	// authoritative recompute result.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_labels WHERE user_id = ? AND conversation_id = ?`,
		conv.UserID, conv.ID); err != nil {
		return fmt.Errorf("failed to delete conversation labels: %w", err)
	}
	for _, lc := range conv.Labels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_labels (user_id, conversation_id, label_id,
				num_messages, num_unread, num_attachments, size, context_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			conv.UserID, conv.ID, lc.LabelID,
			lc.NumMessages, lc.NumUnread, lc.NumAttachments, lc.Size, lc.Time,
		); err != nil {
			return fmt.Errorf("failed to insert conversation label context: %w", err)
		}
	}
	return nil
}

// UpsertConversation inserts or updates a conversation aggregate and its
// label context rows.
func (s *DB) UpsertConversation(ctx context.Context, conv *domain.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertConversationTx(ctx, tx, conv); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation upsert: %w", err)
	}
	s.notifier.Notify(conv.UserID)
	return nil
}

// UpsertConversations inserts or updates a batch of conversations in one
// transaction, as the fetch write-through path requires: either the whole
// page commits or none of it does.
func (s *DB) UpsertConversations(ctx context.Context, userID string, convs []domain.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range convs {
		convs[i].UserID = userID
		if err := upsertConversationTx(ctx, tx, &convs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation batch: %w", err)
	}
	s.notifier.Notify(userID)
	return nil
}

// GetConversation retrieves a conversation aggregate with its label contexts.
func (s *DB) GetConversation(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, subject, num_messages, num_unread,
			num_attachments, size, order_time
		FROM conversations WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(
		&c.ID, &c.UserID, &c.Subject, &c.NumMessages, &c.NumUnread,
		&c.NumAttachments, &c.Size, &c.Order,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}

	if c.Labels, err = s.conversationLabels(ctx, userID, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *DB) conversationLabels(ctx context.Context, userID, conversationID string) ([]domain.LabelContext, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label_id, num_messages, num_unread, num_attachments, size, context_time
		FROM conversation_labels
		WHERE user_id = ? AND conversation_id = ?`, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation labels: %w", err)
	}
	defer rows.Close()

	var contexts []domain.LabelContext
	for rows.Next() {
		var lc domain.LabelContext
		if err := rows.Scan(&lc.LabelID, &lc.NumMessages, &lc.NumUnread,
			&lc.NumAttachments, &lc.Size, &lc.Time); err != nil {
			return nil, fmt.Errorf("failed to scan conversation label: %w", err)
		}
		contexts = append(contexts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation labels: %w", err)
	}
	return contexts, nil
}

// ListConversations returns conversation aggregates. With a LabelID the
// rows are filtered to that label and ordered by its context time, then
// order time, both descending; otherwise by order time.
func (s *DB) ListConversations(ctx context.Context, opts store.ListConversationOptions) ([]domain.Conversation, error) {
	var query string
	var args []any

	if opts.LabelID != "" {
		query = `
			SELECT c.id, c.user_id, c.subject, c.num_messages, c.num_unread,
				c.num_attachments, c.size, c.order_time
			FROM conversations c
			JOIN conversation_labels cl
				ON cl.user_id = c.user_id AND cl.conversation_id = c.id
			WHERE c.user_id = ? AND cl.label_id = ?`
		args = append(args, opts.UserID, opts.LabelID)
	} else {
		query = `
			SELECT c.id, c.user_id, c.subject, c.num_messages, c.num_unread,
				c.num_attachments, c.size, c.order_time
			FROM conversations c
			WHERE c.user_id = ?`
		args = append(args, opts.UserID)
	}

	if opts.Search != "" {
		query += ` AND c.subject LIKE ?`
		args = append(args, "%"+opts.Search+"%")
	}

	if opts.LabelID != "" {
		query += ` ORDER BY cl.context_time DESC, c.order_time DESC`
	} else {
		query += ` ORDER BY c.order_time DESC`
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Subject, &c.NumMessages,
			&c.NumUnread, &c.NumAttachments, &c.Size, &c.Order); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	for i := range convs {
		if convs[i].Labels, err = s.conversationLabels(ctx, opts.UserID, convs[i].ID); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

// DeleteConversation removes a conversation aggregate and its label rows.
// Messages are owned by the message store and deleted separately.
func (s *DB) DeleteConversation(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_labels WHERE user_id = ? AND conversation_id = ?`,
		userID, id); err != nil {
		return fmt.Errorf("failed to delete conversation %s labels: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation delete: %w", err)
	}
	s.notifier.Notify(userID)
	return nil
}
