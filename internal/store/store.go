package store

import (
	"context"
	"errors"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/outbox"
)

// ErrNotFound is returned when a requested row does not exist locally.
// Batch operations treat it as a per-id failure, not an abort.
var ErrNotFound = errors.New("not found")

// MessageStore is the persisted collection of Message records.
type MessageStore interface {
	UpsertMessage(ctx context.Context, msg *domain.Message) error
	UpsertMessages(ctx context.Context, userID string, msgs []domain.Message) error
	GetMessage(ctx context.Context, userID, id string) (*domain.Message, error)
	// ListConversationMessages returns the conversation's messages sorted
	// newest-first.
	ListConversationMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
	ListMessages(ctx context.Context, opts ListMessageOptions) ([]domain.Message, error)
	DeleteMessages(ctx context.Context, userID string, ids []string) error
}

// ConversationStore is the persisted collection of Conversation aggregates,
// each carrying its per-label context rows.
type ConversationStore interface {
	UpsertConversation(ctx context.Context, conv *domain.Conversation) error
	UpsertConversations(ctx context.Context, userID string, convs []domain.Conversation) error
	GetConversation(ctx context.Context, userID, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, opts ListConversationOptions) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, userID, id string) error
}

// UnreadCounterStore caches per-label unread counts independently of the
// conversation list.
type UnreadCounterStore interface {
	ReplaceUnreadCounters(ctx context.Context, userID string, counters []domain.UnreadCounter) error
	ListUnreadCounters(ctx context.Context, userID string) ([]domain.UnreadCounter, error)
}

// LabelStore persists label metadata, backing the label classifier lookup.
type LabelStore interface {
	UpsertLabel(ctx context.Context, label *domain.Label) error
	GetLabel(ctx context.Context, userID, id string) (*domain.Label, error)
	ListLabels(ctx context.Context, userID string) ([]domain.Label, error)
}

// Store is the full persistence surface for one database.
type Store interface {
	MessageStore
	ConversationStore
	UnreadCounterStore
	LabelStore
	outbox.Enqueuer

	// Sync state
	GetSyncState(ctx context.Context, userID string) (*SyncState, error)
	SetSyncState(ctx context.Context, state *SyncState) error

	// Subscribe returns a channel signalled after every committed write
	// for userID, plus a cancel func. Signals are coalesced.
	Subscribe(userID string) (<-chan struct{}, func())

	Close() error
}

// ListMessageOptions configures message listing queries.
type ListMessageOptions struct {
	UserID  string
	LabelID string
	Limit   int
	Offset  int
}

// ListConversationOptions configures conversation listing queries. With a
// LabelID the rows are ordered by that label's context time, so the same
// underlying rows serve every label-scoped view.
type ListConversationOptions struct {
	UserID  string
	LabelID string
	Search  string // matches conversation subject
	Limit   int
	Offset  int
}

// SyncState tracks the synchronization progress for a user.
type SyncState struct {
	UserID    string
	HistoryID uint64
	LastSync  int64 // Unix timestamp
}
