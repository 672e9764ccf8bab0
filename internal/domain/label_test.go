package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsSystemLocation(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{LabelInbox, true},
		{LabelStarred, true},
		{LabelArchive, true},
		{"a1b2c3d4", false},
		{"x0w9", false},
	}
	for _, tt := range tests {
		if got := IsSystemLocation(tt.id); got != tt.want {
			t.Errorf("IsSystemLocation(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIsExclusive(t *testing.T) {
	lookup := func(id string) (Label, bool) {
		switch id {
		case "folder-1":
			return Label{ID: id, Exclusive: true}, true
		case "tag-1":
			return Label{ID: id, Exclusive: false}, true
		}
		return Label{}, false
	}

	tests := []struct {
		id   string
		want bool
	}{
		{LabelInbox, true},   // short numeric ids are always exclusive
		{"folder-1", true},   // user folder
		{"tag-1", false},     // user tag
		{"unknown-9", false}, // unknown user label defaults to tag
	}
	for _, tt := range tests {
		if got := IsExclusive(tt.id, lookup); got != tt.want {
			t.Errorf("IsExclusive(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}

	if IsExclusive("folder-1", nil) {
		t.Error("IsExclusive with nil lookup treated user label as folder")
	}
}

func TestStripOnMove(t *testing.T) {
	lookup := func(id string) (Label, bool) {
		if id == "folder-1" {
			return Label{ID: id, Exclusive: true}, true
		}
		return Label{ID: id, Exclusive: false}, true
	}

	labels := []string{
		LabelInbox, LabelAllSent, LabelAllMail, LabelStarred,
		"folder-1", "tag-1", LabelArchive,
	}
	got := StripOnMove(labels, LabelArchive, lookup)
	want := []string{LabelInbox, "folder-1"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("StripOnMove (-want +got):\n%s", diff)
	}
}
