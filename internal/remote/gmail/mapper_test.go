package gmail

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/remote"
)

func TestMapLabelIDs(t *testing.T) {
	tests := []struct {
		name   string
		gmail  []string
		want   []string
	}{
		{
			name:  "inbox message",
			gmail: []string{"INBOX", "UNREAD"},
			want:  []string{domain.LabelAllMail, domain.LabelInbox},
		},
		{
			name:  "sent expands to both locations",
			gmail: []string{"SENT"},
			want:  []string{domain.LabelAllMail, domain.LabelSent, domain.LabelAllSent},
		},
		{
			name:  "draft expands to both locations",
			gmail: []string{"DRAFT"},
			want:  []string{domain.LabelAllMail, domain.LabelDrafts, domain.LabelAllDrafts},
		},
		{
			name:  "no folder means archived",
			gmail: []string{"STARRED", "Label_42"},
			want:  []string{domain.LabelAllMail, domain.LabelStarred, "Label_42", domain.LabelArchive},
		},
		{
			name:  "gmail internal buckets are dropped",
			gmail: []string{"INBOX", "IMPORTANT", "CATEGORY_PROMOTIONS"},
			want:  []string{domain.LabelAllMail, domain.LabelInbox},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapLabelIDs(tt.gmail)
			sort.Strings(got)
			sort.Strings(tt.want)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mapLabelIDs(%v) (-want +got):\n%s", tt.gmail, diff)
			}
		})
	}
}

func TestMapMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1700000000000,
		SizeEstimate: 2048,
		LabelIds:     []string{"INBOX", "UNREAD", "STARRED"},
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "hello"},
			},
			Parts: []*gmailapi.MessagePart{
				{Filename: "a.pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att1"}},
			},
		},
	}

	got := mapMessage("u1", msg)
	if got.ID != "m1" || got.ConversationID != "t1" || got.Subject != "hello" {
		t.Errorf("identity fields = %+v", got)
	}
	if got.Time != 1700000000 {
		t.Errorf("Time = %d, want seconds not millis", got.Time)
	}
	if got.IsRead {
		t.Error("UNREAD label must map to IsRead=false")
	}
	if !got.IsStarred {
		t.Error("STARRED label must map to IsStarred=true")
	}
	if got.NumAttachments != 1 {
		t.Errorf("NumAttachments = %d, want 1", got.NumAttachments)
	}
	if !got.HasLabel(domain.LabelInbox) || !got.HasLabel(domain.LabelStarred) {
		t.Errorf("labels = %v", got.LabelIDs)
	}
}

func TestMapThread_RollsUpConversation(t *testing.T) {
	thread := &gmailapi.Thread{
		Id: "t1",
		Messages: []*gmailapi.Message{
			{Id: "m1", ThreadId: "t1", InternalDate: 100000, LabelIds: []string{"INBOX", "UNREAD"},
				Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{{Name: "Subject", Value: "topic"}}}},
			{Id: "m2", ThreadId: "t1", InternalDate: 200000, LabelIds: []string{"INBOX"}},
		},
	}

	conv, msgs := mapThread("u1", thread)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if conv.ID != "t1" || conv.Subject != "topic" {
		t.Errorf("conversation = %+v", conv)
	}
	if conv.NumMessages != 2 || conv.NumUnread != 1 {
		t.Errorf("counts = %d messages / %d unread, want 2/1", conv.NumMessages, conv.NumUnread)
	}
	if c := conv.Context(domain.LabelInbox); c == nil || c.NumMessages != 2 || c.Time != 200 {
		t.Errorf("inbox context = %+v", c)
	}
}

func TestMapLabel_SystemLabelFoldsToLocationID(t *testing.T) {
	got := mapLabel("u1", &gmailapi.Label{Id: "INBOX", Name: "INBOX", Type: "system"})
	if got.ID != domain.LabelInbox || got.Type != domain.LabelTypeSystem {
		t.Errorf("mapLabel(INBOX) = %+v", got)
	}

	user := mapLabel("u1", &gmailapi.Label{
		Id: "Label_42", Name: "Work", Type: "user",
		Color: &gmailapi.LabelColor{BackgroundColor: "#ff0000"},
	})
	if user.ID != "Label_42" || user.Type != domain.LabelTypeUser || user.Color != "#ff0000" {
		t.Errorf("mapLabel(user) = %+v", user)
	}
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery(remote.Query{UserID: "u1", LabelID: domain.LabelArchive, Search: "report"},
		domain.Bookmark{Time: 1700000000, ID: "t9"})
	want := "report before:1700000000 -in:inbox -in:trash -in:spam"
	if q != want {
		t.Errorf("buildQuery() = %q, want %q", q, want)
	}

	if q := buildQuery(remote.Query{UserID: "u1", LabelID: domain.LabelInbox}, domain.Bookmark{}); q != "" {
		t.Errorf("buildQuery(initial) = %q, want empty", q)
	}
}

func TestGmailListLabel(t *testing.T) {
	tests := map[string]string{
		domain.LabelInbox:   "INBOX",
		domain.LabelSent:    "SENT",
		domain.LabelAllMail: "",
		domain.LabelArchive: "",
		"Label_42":          "Label_42",
	}
	for in, want := range tests {
		if got := gmailListLabel(in); got != want {
			t.Errorf("gmailListLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
