package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/remote"
	"github.com/mailpouch/mailpouch/internal/store"
)

// SyncService reconciles the local cache with the server for a single
// user: labels, a paged conversation backfill, and history-based deltas.
// It is the backstop that corrects any drift left by optimistic
// mutations.
type SyncService struct {
	store  store.Store
	remote remote.Client
	userID string
}

// NewSyncService creates a SyncService for the given user.
func NewSyncService(s store.Store, rc remote.Client, userID string) *SyncService {
	return &SyncService{store: s, remote: rc, userID: userID}
}

// InitialSync performs a full sync: labels first, then up to count
// conversations page by page, then the unread counters.
func (s *SyncService) InitialSync(ctx context.Context, count int) error {
	labels, err := s.remote.ListLabels(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}
	for i := range labels {
		labels[i].UserID = s.userID
		if err := s.store.UpsertLabel(ctx, &labels[i]); err != nil {
			return fmt.Errorf("failed to upsert label %s: %w", labels[i].ID, err)
		}
	}
	log.Printf("[sync] synced %d labels for user %s", len(labels), s.userID)

	const pageSize = 50
	var (
		bookmark domain.Bookmark
		fetched  int
	)
	q := remote.Query{UserID: s.userID, PageSize: pageSize}
	for fetched < count {
		page, err := s.remote.FetchConversationsPage(ctx, q, bookmark)
		if err != nil {
			return fmt.Errorf("failed to fetch conversations (fetched %d so far): %w", fetched, err)
		}
		if len(page.Conversations) == 0 {
			break
		}

		if err := s.store.UpsertConversations(ctx, s.userID, page.Conversations); err != nil {
			return fmt.Errorf("failed to upsert conversation page: %w", err)
		}

		fetched += len(page.Conversations)
		last := page.Conversations[len(page.Conversations)-1]
		bookmark = domain.Bookmark{Time: last.Order, ID: last.ID}
		log.Printf("[sync] fetched %d/%d conversations for user %s", fetched, count, s.userID)
	}

	counters, err := s.remote.FetchUnreadCounts(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to fetch unread counters: %w", err)
	}
	if err := s.store.ReplaceUnreadCounters(ctx, s.userID, counters); err != nil {
		return fmt.Errorf("failed to replace unread counters: %w", err)
	}

	if err := s.store.SetSyncState(ctx, &store.SyncState{
		UserID:   s.userID,
		LastSync: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}

	log.Printf("[sync] initial sync complete: %d conversations for user %s", fetched, s.userID)
	return nil
}

// IncrementalSync performs a delta sync using the server's history API.
// If no prior sync state exists (historyID == 0), it falls back to an
// InitialSync of 500 conversations.
func (s *SyncService) IncrementalSync(ctx context.Context) error {
	state, err := s.store.GetSyncState(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	if state == nil || state.HistoryID == 0 {
		log.Printf("[sync] no history ID found, falling back to initial sync for user %s", s.userID)
		return s.InitialSync(ctx, 500)
	}

	events, newHistoryID, err := s.remote.History(ctx, s.userID, state.HistoryID)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	var added, deleted, modified int

	for _, event := range events {
		switch event.Type {
		case remote.HistoryMessageAdded:
			if err := s.applyMessageAdded(ctx, event.MessageID); err != nil {
				return err
			}
			added++

		case remote.HistoryMessageDeleted:
			if err := s.applyMessageDeleted(ctx, event.MessageID); err != nil {
				return err
			}
			deleted++

		case remote.HistoryLabelsChanged:
			if err := s.applyMessageAdded(ctx, event.MessageID); err != nil {
				return err
			}
			modified++
		}
	}

	if err := s.store.SetSyncState(ctx, &store.SyncState{
		UserID:    s.userID,
		HistoryID: newHistoryID,
		LastSync:  time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	log.Printf("[sync] incremental sync complete for user %s: %d added, %d deleted, %d modified",
		s.userID, added, deleted, modified)
	return nil
}

// applyMessageAdded fetches the message's authoritative state and rolls
// its conversation back up from the stored messages. The rollup is the
// reference fold, so server-reported label changes land consistently.
func (s *SyncService) applyMessageAdded(ctx context.Context, messageID string) error {
	msg, err := s.remote.FetchMessage(ctx, s.userID, messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	msg.UserID = s.userID
	if err := s.store.UpsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", messageID, err)
	}
	return s.rollupConversation(ctx, msg.ConversationID)
}

// applyMessageDeleted removes the message and either re-rolls or removes
// its conversation.
func (s *SyncService) applyMessageDeleted(ctx context.Context, messageID string) error {
	msg, err := s.store.GetMessage(ctx, s.userID, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil // never cached locally
	}
	if err != nil {
		return fmt.Errorf("failed to load message %s: %w", messageID, err)
	}
	if err := s.store.DeleteMessages(ctx, s.userID, []string{messageID}); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return s.rollupConversation(ctx, msg.ConversationID)
}

// rollupConversation recomputes a conversation aggregate from its stored
// messages, deleting the row when none remain.
func (s *SyncService) rollupConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}
	msgs, err := s.store.ListConversationMessages(ctx, s.userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to list messages of %s: %w", conversationID, err)
	}
	if len(msgs) == 0 {
		if err := s.store.DeleteConversation(ctx, s.userID, conversationID); err != nil {
			return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
		}
		return nil
	}

	subject := msgs[len(msgs)-1].Subject // oldest message names the thread
	if prev, err := s.store.GetConversation(ctx, s.userID, conversationID); err == nil {
		subject = prev.Subject
	}

	conv := domain.Rollup(conversationID, s.userID, subject, msgs)
	if err := s.store.UpsertConversation(ctx, &conv); err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", conversationID, err)
	}
	return nil
}
