package sqlite

import (
	"context"
	"testing"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/outbox"
	"github.com/mailpouch/mailpouch/internal/store"
)

func TestOutbox_EnqueueListDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	j1 := outbox.NewJob("u1", outbox.KindLabel, []string{"c1", "c2"}, outbox.Params{LabelID: "lbl-work"})
	j2 := outbox.NewJob("u1", outbox.KindMove, []string{"c3"}, outbox.Params{FolderID: "6"})
	for _, j := range []outbox.Job{j1, j2} {
		if err := db.Enqueue(ctx, j); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}

	jobs, err := db.ListPendingJobs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPendingJobs() error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("pending jobs = %d, want 2", len(jobs))
	}
	if jobs[0].Kind != outbox.KindLabel || jobs[0].Params.LabelID != "lbl-work" {
		t.Errorf("job 0 = %+v", jobs[0])
	}
	if len(jobs[0].IDs) != 2 || jobs[0].IDs[0] != "c1" {
		t.Errorf("job 0 ids = %v, want [c1 c2]", jobs[0].IDs)
	}

	if err := db.DeleteJob(ctx, j1.ID); err != nil {
		t.Fatalf("DeleteJob() error: %v", err)
	}
	jobs, err = db.ListPendingJobs(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPendingJobs() error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != j2.ID {
		t.Errorf("jobs after delete = %+v, want only the move job", jobs)
	}
}

func TestUnreadCounters_ReplaceWholesale(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := []domain.UnreadCounter{
		{UserID: "u1", LabelID: "0", Type: domain.CounterConversations, Count: 5},
		{UserID: "u1", LabelID: "10", Type: domain.CounterConversations, Count: 2},
	}
	if err := db.ReplaceUnreadCounters(ctx, "u1", first); err != nil {
		t.Fatalf("ReplaceUnreadCounters() error: %v", err)
	}

	got, err := db.ListUnreadCounters(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnreadCounters() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("counters = %d, want 2", len(got))
	}

	second := []domain.UnreadCounter{
		{UserID: "u1", LabelID: "0", Type: domain.CounterConversations, Count: 1},
	}
	if err := db.ReplaceUnreadCounters(ctx, "u1", second); err != nil {
		t.Fatalf("second ReplaceUnreadCounters() error: %v", err)
	}
	got, err = db.ListUnreadCounters(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUnreadCounters() error: %v", err)
	}
	if len(got) != 1 || got[0].Count != 1 {
		t.Errorf("counters after replace = %+v, want single Inbox counter of 1", got)
	}
}

func TestSyncState_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Missing state returns an empty record, not an error.
	state, err := db.GetSyncState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetSyncState() error: %v", err)
	}
	if state.HistoryID != 0 {
		t.Errorf("fresh state = %+v, want zero history", state)
	}

	if err := db.SetSyncState(ctx, &store.SyncState{
		UserID: "u1", HistoryID: 42, LastSync: 1700000000,
	}); err != nil {
		t.Fatalf("SetSyncState() error: %v", err)
	}
	state, err = db.GetSyncState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetSyncState() error: %v", err)
	}
	if state.HistoryID != 42 || state.LastSync != 1700000000 {
		t.Errorf("state = %+v", state)
	}
}
