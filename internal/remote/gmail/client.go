// Package gmail implements the remote client against the Gmail API.
// Threads map to conversations and Gmail label ids are folded onto the
// local label vocabulary at the boundary; nothing above this package sees
// Gmail's wire types.
package gmail

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/remote"
	"github.com/mailpouch/mailpouch/internal/store"
)

// The API user is always the token owner.
const apiUser = "me"

const (
	defaultPageSize = 50
	// Gmail allows 250 quota units/s; thread gets cost 10. Stay well under.
	requestsPerSecond = 20
	hydrateWorkers    = 5
)

// Client implements remote.Client against the Gmail API.
type Client struct {
	tokenStore *store.KeyringTokenStore
	userID     string
	service    *gmailapi.Service
	token      *oauth2.Token
	limiter    *rate.Limiter
}

// New creates a Gmail client for the given user.
func New(userID string, tokenStore *store.KeyringTokenStore) *Client {
	return &Client{
		userID:     userID,
		tokenStore: tokenStore,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Authenticate runs the OAuth2 flow, saves the token, and initializes the
// Gmail service.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := authenticate(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate gmail: %w", err)
	}

	if err := c.tokenStore.SaveToken(c.userID, token); err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}

	c.token = token
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// IsAuthenticated returns true if the Gmail service is initialized.
func (c *Client) IsAuthenticated() bool {
	return c.service != nil
}

// initService loads the token from the keyring and creates the Gmail service.
func (c *Client) initService(ctx context.Context) error {
	token, err := c.tokenStore.LoadToken(c.userID)
	if err != nil {
		return fmt.Errorf("failed to load gmail token: %w", err)
	}

	c.token = token
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// ensureService lazily initializes the Gmail service if not already done.
func (c *Client) ensureService(ctx context.Context) error {
	if c.service != nil {
		return nil
	}
	return c.initService(ctx)
}

// FetchConversationsPage lists the threads after bookmark for the query
// and hydrates each into a conversation aggregate.
func (c *Client) FetchConversationsPage(ctx context.Context, q remote.Query, bookmark domain.Bookmark) (remote.Page, error) {
	if err := c.ensureService(ctx); err != nil {
		return remote.Page{}, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	call := c.service.Users.Threads.List(apiUser).MaxResults(int64(pageSize))
	if query := buildQuery(q, bookmark); query != "" {
		call = call.Q(query)
	}
	if gl := gmailListLabel(q.LabelID); gl != "" {
		call = call.LabelIds(gl)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return remote.Page{}, err
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return remote.Page{}, fmt.Errorf("failed to list gmail threads: %w", err)
	}

	convs, err := c.hydrateThreads(ctx, resp.Threads)
	if err != nil {
		return remote.Page{}, err
	}
	return remote.Page{Conversations: convs}, nil
}

// hydrateThreads fetches full thread metadata concurrently and rolls each
// thread up into a conversation, preserving newest-first order.
func (c *Client) hydrateThreads(ctx context.Context, threads []*gmailapi.Thread) ([]domain.Conversation, error) {
	convs := make([]domain.Conversation, len(threads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateWorkers)
	for i, t := range threads {
		i, t := i, t
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			full, err := c.service.Users.Threads.Get(apiUser, t.Id).
				Format("metadata").MetadataHeaders("Subject").Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("failed to get gmail thread %s: %w", t.Id, err)
			}
			convs[i], _ = mapThread(c.userID, full)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].Order != convs[j].Order {
			return convs[i].Order > convs[j].Order
		}
		return convs[i].ID > convs[j].ID
	})
	return convs, nil
}

// buildQuery renders the search term and bookmark into a Gmail query
// string. Gmail has no (time, id) cursor, but before: accepts epoch
// seconds, which pages through the same descending order.
func buildQuery(q remote.Query, bookmark domain.Bookmark) string {
	query := q.Search
	if !bookmark.Initial() {
		query += fmt.Sprintf(" before:%d", bookmark.Time)
	}
	if q.LabelID == domain.LabelArchive {
		// Gmail expresses the archive as the absence of folder labels.
		query += " -in:inbox -in:trash -in:spam"
	}
	return strings.TrimSpace(query)
}

// gmailListLabel returns the Gmail label id to filter a list call by, or
// "" when the view needs no label filter.
func gmailListLabel(labelID string) string {
	switch labelID {
	case "", domain.LabelAllMail, domain.LabelArchive:
		return ""
	}
	if gl, ok := gmailLabelByLocation[labelID]; ok {
		return gl
	}
	return labelID // user label ids pass through
}

// FetchConversation returns one thread as an aggregate plus its messages.
func (c *Client) FetchConversation(ctx context.Context, userID, id string) (*domain.Conversation, []domain.Message, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	t, err := c.service.Users.Threads.Get(apiUser, id).
		Format("metadata").MetadataHeaders("Subject").Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get gmail thread %s: %w", id, err)
	}

	conv, msgs := mapThread(c.userID, t)
	return &conv, msgs, nil
}

// FetchMessage returns a single message summary.
func (c *Client) FetchMessage(ctx context.Context, userID, id string) (*domain.Message, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	m, err := c.service.Users.Messages.Get(apiUser, id).
		Format("metadata").MetadataHeaders("Subject").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail message %s: %w", id, err)
	}

	msg := mapMessage(c.userID, m)
	return &msg, nil
}

// FetchUnreadCounts reads the per-label unread totals from the label
// resources, one Get per label.
func (c *Client) FetchUnreadCounts(ctx context.Context, userID string) ([]domain.UnreadCounter, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.service.Users.Labels.List(apiUser).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail labels: %w", err)
	}

	counters := make([][]domain.UnreadCounter, len(resp.Labels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateWorkers)
	for i, l := range resp.Labels {
		i, l := i, l
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}
			full, err := c.service.Users.Labels.Get(apiUser, l.Id).Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("failed to get gmail label %s: %w", l.Id, err)
			}
			labelID := mapLabel(c.userID, full).ID
			counters[i] = []domain.UnreadCounter{
				{UserID: c.userID, LabelID: labelID, Type: domain.CounterConversations, Count: int(full.ThreadsUnread)},
				{UserID: c.userID, LabelID: labelID, Type: domain.CounterMessages, Count: int(full.MessagesUnread)},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.UnreadCounter
	for _, cs := range counters {
		out = append(out, cs...)
	}
	return out, nil
}

// ListLabels returns the user's labels in the local vocabulary.
func (c *Client) ListLabels(ctx context.Context, userID string) ([]domain.Label, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.service.Users.Labels.List(apiUser).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list gmail labels: %w", err)
	}

	labels := make([]domain.Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, mapLabel(c.userID, l))
	}
	return labels, nil
}

// History returns change events since the given history id.
func (c *Client) History(ctx context.Context, userID string, startHistoryID uint64) ([]remote.HistoryEvent, uint64, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	var events []remote.HistoryEvent
	var latestHistoryID uint64

	call := c.service.Users.History.List(apiUser).StartHistoryId(startHistoryID)
	err := call.Pages(ctx, func(resp *gmailapi.ListHistoryResponse) error {
		latestHistoryID = resp.HistoryId

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				events = append(events, remote.HistoryEvent{
					Type:      remote.HistoryMessageAdded,
					MessageID: added.Message.Id,
					LabelIDs:  mapLabelIDs(added.Message.LabelIds),
				})
			}
			for _, deleted := range h.MessagesDeleted {
				events = append(events, remote.HistoryEvent{
					Type:      remote.HistoryMessageDeleted,
					MessageID: deleted.Message.Id,
				})
			}
			for _, changed := range h.LabelsAdded {
				events = append(events, remote.HistoryEvent{
					Type:      remote.HistoryLabelsChanged,
					MessageID: changed.Message.Id,
					LabelIDs:  mapLabelIDs(changed.Message.LabelIds),
				})
			}
			for _, changed := range h.LabelsRemoved {
				events = append(events, remote.HistoryEvent{
					Type:      remote.HistoryLabelsChanged,
					MessageID: changed.Message.Id,
					LabelIDs:  mapLabelIDs(changed.Message.LabelIds),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gmail history: %w", err)
	}

	return events, latestHistoryID, nil
}

// GetProfile returns the authenticated user's email address.
func (c *Client) GetProfile(ctx context.Context) (string, error) {
	if err := c.ensureService(ctx); err != nil {
		return "", fmt.Errorf("failed to ensure gmail service: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	profile, err := c.service.Users.GetProfile(apiUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get gmail profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// Compile-time interface compliance check.
var _ remote.Client = (*Client)(nil)
