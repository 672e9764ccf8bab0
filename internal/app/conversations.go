package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/paged"
	"github.com/mailpouch/mailpouch/internal/remote"
	"github.com/mailpouch/mailpouch/internal/store"
)

// Conversations serves paginated, label-scoped conversation views backed
// by the local store, fetching pages from the remote client on miss or
// explicit refresh. Store handles are injected and scoped to one user
// session; there is no ambient lookup.
type Conversations struct {
	store  store.Store
	remote remote.Client
	pages  *paged.Store[remote.Query, []domain.Conversation]
}

// NewConversations wires the paged fetch-and-cache store for conversation
// list queries.
func NewConversations(st store.Store, rc remote.Client) *Conversations {
	c := &Conversations{store: st, remote: rc}
	c.pages = &paged.Store[remote.Query, []domain.Conversation]{
		KeyFunc: remote.Query.Key,
		Read: func(ctx context.Context, q remote.Query) ([]domain.Conversation, error) {
			return st.ListConversations(ctx, store.ListConversationOptions{
				UserID:  q.UserID,
				LabelID: q.LabelID,
				Search:  q.Search,
			})
		},
		Fetch: func(ctx context.Context, q remote.Query, b domain.Bookmark) ([]domain.Conversation, domain.Bookmark, error) {
			page, err := rc.FetchConversationsPage(ctx, q, b)
			if err != nil {
				return nil, b, err
			}
			return page.Conversations, advanceBookmark(b, q.LabelID, page.Conversations), nil
		},
		Write: func(ctx context.Context, q remote.Query, convs []domain.Conversation) error {
			return st.UpsertConversations(ctx, q.UserID, convs)
		},
		Empty: func(convs []domain.Conversation) bool { return len(convs) == 0 },
		Watch: func(q remote.Query) (<-chan struct{}, func()) {
			return st.Subscribe(q.UserID)
		},
	}
	return c
}

// advanceBookmark derives the next cursor from the last item of a fetched
// page: its sort time under the queried label, tie-broken by id. An empty
// page leaves the bookmark where it was.
func advanceBookmark(b domain.Bookmark, labelID string, convs []domain.Conversation) domain.Bookmark {
	if len(convs) == 0 {
		return b
	}
	last := convs[len(convs)-1]
	return domain.Bookmark{Time: last.ContextTime(labelID), ID: last.ID}
}

// Observe returns a reactive stream of the conversation list for q. The
// local cache is the primary source; a fetch is triggered when
// refreshAtStart is set or the cache is empty.
func (c *Conversations) Observe(ctx context.Context, q remote.Query, refreshAtStart bool) <-chan paged.Result[[]domain.Conversation] {
	return c.pages.Observe(ctx, q, refreshAtStart)
}

// LoadMore fetches the next page for q using the current bookmark.
func (c *Conversations) LoadMore(ctx context.Context, q remote.Query) error {
	return c.pages.LoadMore(ctx, q)
}

// Refresh fetches the page after the current bookmark for q.
func (c *Conversations) Refresh(ctx context.Context, q remote.Query) error {
	return c.pages.Refresh(ctx, q)
}

// Get returns a reactive stream for a single conversation. The local read
// is the source of truth; a miss triggers a remote fetch that populates
// both the message store and the conversation store, after which the
// stream re-emits.
func (c *Conversations) Get(ctx context.Context, userID, id string) <-chan paged.Result[*domain.Conversation] {
	out := make(chan paged.Result[*domain.Conversation], 1)

	go func() {
		defer close(out)

		invalidated, stop := c.store.Subscribe(userID)
		defer stop()

		emit := func(r paged.Result[*domain.Conversation]) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		conv, err := c.store.GetConversation(ctx, userID, id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if !emit(paged.Result[*domain.Conversation]{}) {
				return
			}
			if ferr := c.fetchOne(ctx, userID, id); ferr != nil && ctx.Err() == nil {
				if !emit(paged.Result[*domain.Conversation]{Err: ferr}) {
					return
				}
			}
		case err != nil:
			if !emit(paged.Result[*domain.Conversation]{Err: err}) {
				return
			}
		default:
			if !emit(paged.Result[*domain.Conversation]{Value: conv}) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-invalidated:
				conv, err := c.store.GetConversation(ctx, userID, id)
				if errors.Is(err, store.ErrNotFound) {
					// Deleted locally; emit the absence.
					if !emit(paged.Result[*domain.Conversation]{}) {
						return
					}
					continue
				}
				if !emit(paged.Result[*domain.Conversation]{Value: conv, Err: err}) {
					return
				}
			}
		}
	}()

	return out
}

// fetchOne populates both stores from a single-conversation fetch. Writes
// only happen after the fetch completed in full.
func (c *Conversations) fetchOne(ctx context.Context, userID, id string) error {
	conv, msgs, err := c.remote.FetchConversation(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to fetch conversation %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.store.UpsertMessages(ctx, userID, msgs); err != nil {
		return err
	}
	conv.UserID = userID
	return c.store.UpsertConversation(ctx, conv)
}
