package app

import (
	"context"
	"fmt"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/paged"
	"github.com/mailpouch/mailpouch/internal/remote"
	"github.com/mailpouch/mailpouch/internal/store"
)

// Counters serves the cached per-label unread counts. The cache is
// replaced wholesale on refresh; counters are display hints, not
// transactional truth.
type Counters struct {
	store  store.Store
	remote remote.Client
	pages  *paged.Store[string, []domain.UnreadCounter]
}

// NewCounters wires the unread-counter fetch-and-cache store, keyed by
// user id.
func NewCounters(st store.Store, rc remote.Client) *Counters {
	c := &Counters{store: st, remote: rc}
	c.pages = &paged.Store[string, []domain.UnreadCounter]{
		KeyFunc: func(userID string) string { return "counters/" + userID },
		Read: func(ctx context.Context, userID string) ([]domain.UnreadCounter, error) {
			return st.ListUnreadCounters(ctx, userID)
		},
		Fetch: func(ctx context.Context, userID string, b domain.Bookmark) ([]domain.UnreadCounter, domain.Bookmark, error) {
			counters, err := rc.FetchUnreadCounts(ctx, userID)
			return counters, b, err // counters are not paginated
		},
		Write: func(ctx context.Context, userID string, counters []domain.UnreadCounter) error {
			return st.ReplaceUnreadCounters(ctx, userID, counters)
		},
		Empty: func(counters []domain.UnreadCounter) bool { return len(counters) == 0 },
		Watch: func(userID string) (<-chan struct{}, func()) {
			return st.Subscribe(userID)
		},
	}
	return c
}

// Observe returns a reactive stream of the user's unread counters.
func (c *Counters) Observe(ctx context.Context, userID string, refreshAtStart bool) <-chan paged.Result[[]domain.UnreadCounter] {
	return c.pages.Observe(ctx, userID, refreshAtStart)
}

// Refresh re-fetches the counters and replaces the cached set.
func (c *Counters) Refresh(ctx context.Context, userID string) error {
	if err := c.pages.Refresh(ctx, userID); err != nil {
		return fmt.Errorf("failed to refresh unread counters: %w", err)
	}
	return nil
}
