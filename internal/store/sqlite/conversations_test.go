package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/store"
)

func testConv(id string, order int64, contexts ...domain.LabelContext) domain.Conversation {
	return domain.Conversation{
		ID: id, UserID: "u1", Subject: "s-" + id,
		NumMessages: 1, Order: order, Labels: contexts,
	}
}

func TestUpsertAndGetConversation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv := testConv("c1", 300,
		domain.LabelContext{LabelID: "0", NumMessages: 1, NumUnread: 1, Time: 300},
		domain.LabelContext{LabelID: "10", NumMessages: 1, Time: 200},
	)
	if err := db.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("UpsertConversation() error: %v", err)
	}

	got, err := db.GetConversation(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	sortContexts := cmpopts.SortSlices(func(a, b domain.LabelContext) bool {
		return a.LabelID < b.LabelID
	})
	if diff := cmp.Diff(&conv, got, sortContexts); diff != "" {
		t.Errorf("conversation round trip (-want +got):\n%s", diff)
	}
}

func TestUpsertConversation_ReplacesContexts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv := testConv("c1", 300,
		domain.LabelContext{LabelID: "0", NumMessages: 1, Time: 300})
	if err := db.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("UpsertConversation() error: %v", err)
	}

	conv.Labels = []domain.LabelContext{{LabelID: "6", NumMessages: 1, Time: 300}}
	if err := db.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("second UpsertConversation() error: %v", err)
	}

	got, err := db.GetConversation(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.HasLabel("0") || !got.HasLabel("6") {
		t.Errorf("contexts = %+v, want only label 6", got.Labels)
	}
}

func TestListConversations_LabelViewOrdersByContextTime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// c1 is newer overall, but its Starred context is older than c2's:
	// the Starred view must order by context time, not conversation order.
	convs := []domain.Conversation{
		testConv("c1", 400,
			domain.LabelContext{LabelID: "0", NumMessages: 1, Time: 400},
			domain.LabelContext{LabelID: "10", NumMessages: 1, Time: 100}),
		testConv("c2", 300,
			domain.LabelContext{LabelID: "10", NumMessages: 1, Time: 300}),
	}
	if err := db.UpsertConversations(ctx, "u1", convs); err != nil {
		t.Fatalf("UpsertConversations() error: %v", err)
	}

	got, err := db.ListConversations(ctx, store.ListConversationOptions{UserID: "u1", LabelID: "10"})
	if err != nil {
		t.Fatalf("ListConversations() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c2" || got[1].ID != "c1" {
		t.Errorf("starred view order = %+v, want [c2 c1]", got)
	}

	// The unscoped view falls back to conversation order.
	got, err = db.ListConversations(ctx, store.ListConversationOptions{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListConversations() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" {
		t.Errorf("unscoped order = %+v, want c1 first", got)
	}
}

func TestListConversations_SearchFiltersSubject(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	convs := []domain.Conversation{
		{ID: "c1", UserID: "u1", Subject: "quarterly report", Order: 200,
			Labels: []domain.LabelContext{{LabelID: "0", NumMessages: 1, Time: 200}}},
		{ID: "c2", UserID: "u1", Subject: "lunch?", Order: 100,
			Labels: []domain.LabelContext{{LabelID: "0", NumMessages: 1, Time: 100}}},
	}
	if err := db.UpsertConversations(ctx, "u1", convs); err != nil {
		t.Fatalf("UpsertConversations() error: %v", err)
	}

	got, err := db.ListConversations(ctx, store.ListConversationOptions{
		UserID: "u1", LabelID: "0", Search: "report",
	})
	if err != nil {
		t.Fatalf("ListConversations() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("search result = %+v, want [c1]", got)
	}
}

func TestDeleteConversation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	conv := testConv("c1", 100, domain.LabelContext{LabelID: "0", NumMessages: 1, Time: 100})
	if err := db.UpsertConversation(ctx, &conv); err != nil {
		t.Fatalf("UpsertConversation() error: %v", err)
	}
	if err := db.DeleteConversation(ctx, "u1", "c1"); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}

	if _, err := db.GetConversation(ctx, "u1", "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted conversation still readable: %v", err)
	}
	var n int
	if err := db.db.QueryRow(
		`SELECT COUNT(*) FROM conversation_labels WHERE user_id = 'u1' AND conversation_id = 'c1'`,
	).Scan(&n); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if n != 0 {
		t.Errorf("orphaned context rows = %d, want 0", n)
	}
}
