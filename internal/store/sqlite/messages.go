package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/store"
)

func upsertMessageTx(ctx context.Context, tx *sql.Tx, msg *domain.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, conversation_id, subject, time,
			is_read, is_starred, num_attachments, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			subject         = excluded.subject,
			time            = excluded.time,
			is_read         = excluded.is_read,
			is_starred      = excluded.is_starred,
			num_attachments = excluded.num_attachments,
			size            = excluded.size`,
		msg.ID, msg.UserID, msg.ConversationID, msg.Subject, msg.Time,
		msg.IsRead, msg.IsStarred, msg.NumAttachments, msg.Size,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	// Replace the label rows wholesale; LabelIDs is authoritative.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM message_labels WHERE user_id = ? AND message_id = ?`,
		msg.UserID, msg.ID); err != nil {
		return fmt.Errorf("failed to delete message labels: %w", err)
	}
	for _, labelID := range msg.LabelIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO message_labels (user_id, message_id, label_id) VALUES (?, ?, ?)`,
			msg.UserID, msg.ID, labelID); err != nil {
			return fmt.Errorf("failed to insert message label: %w", err)
		}
	}
	return nil
}

// UpsertMessage inserts or updates a message and its label associations.
func (s *DB) UpsertMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertMessageTx(ctx, tx, msg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message upsert: %w", err)
	}
	s.notifier.Notify(msg.UserID)
	return nil
}

// UpsertMessages inserts or updates a batch of messages in one transaction.
func (s *DB) UpsertMessages(ctx context.Context, userID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range msgs {
		msgs[i].UserID = userID
		if err := upsertMessageTx(ctx, tx, &msgs[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message batch: %w", err)
	}
	s.notifier.Notify(userID)
	return nil
}

// GetMessage retrieves a single message by id, including its labels.
func (s *DB) GetMessage(ctx context.Context, userID, id string) (*domain.Message, error) {
	var m domain.Message
	var convID sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, conversation_id, subject, time,
			is_read, is_starred, num_attachments, size
		FROM messages WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(
		&m.ID, &m.UserID, &convID, &m.Subject, &m.Time,
		&m.IsRead, &m.IsStarred, &m.NumAttachments, &m.Size,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	m.ConversationID = convID.String

	if m.LabelIDs, err = s.messageLabels(ctx, userID, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DB) messageLabels(ctx context.Context, userID, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label_id FROM message_labels WHERE user_id = ? AND message_id = ?`,
		userID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query message labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var labelID string
		if err := rows.Scan(&labelID); err != nil {
			return nil, fmt.Errorf("failed to scan message label: %w", err)
		}
		labels = append(labels, labelID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message labels: %w", err)
	}
	return labels, nil
}

// ListConversationMessages returns a conversation's messages newest-first.
func (s *DB) ListConversationMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, conversation_id, subject, time,
			is_read, is_starred, num_attachments, size
		FROM messages
		WHERE user_id = ? AND conversation_id = ?
		ORDER BY time DESC, id DESC`, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation %s messages: %w", conversationID, err)
	}
	msgs, err := s.scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].LabelIDs, err = s.messageLabels(ctx, userID, msgs[i].ID); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// ListMessages returns messages, optionally filtered by label, newest-first.
func (s *DB) ListMessages(ctx context.Context, opts store.ListMessageOptions) ([]domain.Message, error) {
	var query string
	var args []any

	if opts.LabelID != "" {
		query = `
			SELECT m.id, m.user_id, m.conversation_id, m.subject, m.time,
				m.is_read, m.is_starred, m.num_attachments, m.size
			FROM messages m
			JOIN message_labels ml ON ml.user_id = m.user_id AND ml.message_id = m.id
			WHERE m.user_id = ? AND ml.label_id = ?
			ORDER BY m.time DESC, m.id DESC`
		args = append(args, opts.UserID, opts.LabelID)
	} else {
		query = `
			SELECT id, user_id, conversation_id, subject, time,
				is_read, is_starred, num_attachments, size
			FROM messages
			WHERE user_id = ?
			ORDER BY time DESC, id DESC`
		args = append(args, opts.UserID)
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
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	msgs, err := s.scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].LabelIDs, err = s.messageLabels(ctx, opts.UserID, msgs[i].ID); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

func (s *DB) scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var convID sql.NullString
		if err := rows.Scan(
			&m.ID, &m.UserID, &convID, &m.Subject, &m.Time,
			&m.IsRead, &m.IsStarred, &m.NumAttachments, &m.Size,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.ConversationID = convID.String
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

// DeleteMessages removes the given messages and their label rows.
func (s *DB) DeleteMessages(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM messages WHERE user_id = ? AND id = ?`, userID, id); err != nil {
			return fmt.Errorf("failed to delete message %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM message_labels WHERE user_id = ? AND message_id = ?`, userID, id); err != nil {
			return fmt.Errorf("failed to delete message %s labels: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message delete: %w", err)
	}
	s.notifier.Notify(userID)
	return nil
}
