package domain

// Message is the authoritative local record for a single mail message.
// LabelIDs is the complete set of labels and folders currently applied;
// every conversation-level counter is derivable from it.
type Message struct {
	ID             string
	UserID         string
	ConversationID string // empty for drafts and orphan messages
	Subject        string
	Time           int64 // unix seconds, used for ordering and bookmarks
	IsRead         bool
	IsStarred      bool
	NumAttachments int
	Size           int64
	LabelIDs       []string
}

func (m *Message) HasLabel(labelID string) bool {
	for _, l := range m.LabelIDs {
		if l == labelID {
			return true
		}
	}
	return false
}

// AddLabel adds labelID to the message and reports whether the label set
// changed. Callers must only patch conversation aggregates when it did,
// which is what makes replayed events idempotent.
func (m *Message) AddLabel(labelID string) bool {
	if m.HasLabel(labelID) {
		return false
	}
	m.LabelIDs = append(m.LabelIDs, labelID)
	return true
}

// RemoveLabel removes labelID from the message and reports whether the
// label set changed.
func (m *Message) RemoveLabel(labelID string) bool {
	for i, l := range m.LabelIDs {
		if l == labelID {
			m.LabelIDs = append(m.LabelIDs[:i], m.LabelIDs[i+1:]...)
			return true
		}
	}
	return false
}

// IsDraft reports whether the message lives in a draft location.
func (m *Message) IsDraft() bool {
	return m.HasLabel(LabelAllDrafts) || m.HasLabel(LabelDrafts)
}
