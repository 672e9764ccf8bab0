// Package remote defines the interface to the mail API client. The engine
// only consumes already-parsed summary types; wire formats belong to the
// implementations.
package remote

import (
	"context"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
)

// Query identifies one conversation-list view: a user, an optional label
// filter and an optional search term.
type Query struct {
	UserID   string
	LabelID  string
	Search   string
	PageSize int
}

// Key returns the de-duplication key for the query. Two queries with the
// same key must share an in-flight fetch.
func (q Query) Key() string {
	return fmt.Sprintf("%s/%s/%s", q.UserID, q.LabelID, q.Search)
}

// Page is one fetched page of conversation summaries, ordered by
// (time, id) descending. The last item drives the next bookmark.
type Page struct {
	Conversations []domain.Conversation
}

// HistoryEventType enumerates incremental sync events.
type HistoryEventType int

const (
	HistoryMessageAdded HistoryEventType = iota
	HistoryMessageDeleted
	HistoryLabelsChanged
)

// HistoryEvent is one change reported by the server since a history id.
type HistoryEvent struct {
	Type      HistoryEventType
	MessageID string
	LabelIDs  []string
}

// Client is the API surface the engine consumes. Implementations perform
// the actual network calls.
type Client interface {
	// FetchConversationsPage returns the page following bookmark for the
	// given query. A zero bookmark requests the newest page.
	FetchConversationsPage(ctx context.Context, q Query, bookmark domain.Bookmark) (Page, error)

	// FetchConversation returns one conversation aggregate together with
	// all of its messages.
	FetchConversation(ctx context.Context, userID, id string) (*domain.Conversation, []domain.Message, error)

	// FetchMessage returns a single message.
	FetchMessage(ctx context.Context, userID, id string) (*domain.Message, error)

	// FetchUnreadCounts returns the per-label unread counters.
	FetchUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCounter, error)

	// ListLabels returns the user's labels.
	ListLabels(ctx context.Context, userID string) ([]domain.Label, error)

	// History returns change events since startHistoryID plus the new
	// history id to resume from.
	History(ctx context.Context, userID string, startHistoryID uint64) ([]HistoryEvent, uint64, error)
}
