package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/store"
)

func TestUpsertAndListLabels(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	labels := []domain.Label{
		{ID: "0", UserID: "u1", Name: "Inbox", Type: domain.LabelTypeSystem, Exclusive: true},
		{ID: "10", UserID: "u1", Name: "Starred", Type: domain.LabelTypeSystem},
		{ID: "lbl-work", UserID: "u1", Name: "Work", Type: domain.LabelTypeUser, Color: "#ff0000"},
	}
	for _, lbl := range labels {
		lbl := lbl
		if err := db.UpsertLabel(ctx, &lbl); err != nil {
			t.Fatalf("UpsertLabel(%s) error: %v", lbl.ID, err)
		}
	}

	got, err := db.ListLabels(ctx, "u1")
	if err != nil {
		t.Fatalf("ListLabels() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListLabels() count = %d, want 3", len(got))
	}

	lbl, err := db.GetLabel(ctx, "u1", "lbl-work")
	if err != nil {
		t.Fatalf("GetLabel() error: %v", err)
	}
	if lbl.Name != "Work" || lbl.Color != "#ff0000" || lbl.Exclusive {
		t.Errorf("GetLabel() = %+v", lbl)
	}
}

func TestGetLabel_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetLabel(context.Background(), "u1", "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetLabel() error = %v, want ErrNotFound", err)
	}
}

func TestUpsertLabel_UpdatesExclusiveFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lbl := &domain.Label{ID: "lbl-x", UserID: "u1", Name: "X", Type: domain.LabelTypeUser}
	if err := db.UpsertLabel(ctx, lbl); err != nil {
		t.Fatalf("UpsertLabel() error: %v", err)
	}
	lbl.Exclusive = true
	if err := db.UpsertLabel(ctx, lbl); err != nil {
		t.Fatalf("second UpsertLabel() error: %v", err)
	}

	got, err := db.GetLabel(ctx, "u1", "lbl-x")
	if err != nil {
		t.Fatalf("GetLabel() error: %v", err)
	}
	if !got.Exclusive {
		t.Error("exclusive flag not updated")
	}
}
