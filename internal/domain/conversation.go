package domain

// LabelContext carries the per-(conversation, label) counters. For every
// label L on a conversation: NumMessages equals the count of the
// conversation's messages carrying L, NumUnread the unread subset, and
// Time the newest message time under L.
type LabelContext struct {
	LabelID        string
	NumMessages    int
	NumUnread      int
	NumAttachments int
	Size           int64
	Time           int64
}

// Conversation is the denormalized aggregate over a thread of messages.
// A label appears in Labels iff at least one message carries it.
type Conversation struct {
	ID             string
	UserID         string
	Subject        string
	NumMessages    int
	NumUnread      int
	NumAttachments int
	Size           int64
	Order          int64 // newest message time, sort key outside label views
	Labels         []LabelContext
}

// Context returns the label context for labelID, or nil if absent.
func (c *Conversation) Context(labelID string) *LabelContext {
	for i := range c.Labels {
		if c.Labels[i].LabelID == labelID {
			return &c.Labels[i]
		}
	}
	return nil
}

// ContextTime returns the sort time for labelID's view, falling back to
// the conversation order when the label is absent.
func (c *Conversation) ContextTime(labelID string) int64 {
	if ctx := c.Context(labelID); ctx != nil {
		return ctx.Time
	}
	return c.Order
}

// HasLabel reports whether the conversation has a context for labelID.
func (c *Conversation) HasLabel(labelID string) bool {
	return c.Context(labelID) != nil
}

// ApplyMessageLabeled patches the aggregate after msg gained labelID.
// Callers must invoke it only when the message-level change actually
// happened (Message.AddLabel returned true); that is what keeps replayed
// events from double-counting.
func (c *Conversation) ApplyMessageLabeled(labelID string, msg *Message) {
	ctx := c.Context(labelID)
	if ctx == nil {
		c.Labels = append(c.Labels, LabelContext{LabelID: labelID})
		ctx = &c.Labels[len(c.Labels)-1]
	}
	ctx.NumMessages++
	if !msg.IsRead {
		ctx.NumUnread++
	}
	ctx.NumAttachments += msg.NumAttachments
	ctx.Size += msg.Size
	if msg.Time > ctx.Time {
		ctx.Time = msg.Time
	}
}

// ApplyMessageUnlabeled patches the aggregate after msg lost labelID.
// rest holds the conversation's messages other than msg (any order); it is
// scanned to recover the max time, since a plain decrement cannot. The last
// message under a label drops the context entry entirely, and counters
// never go below zero.
func (c *Conversation) ApplyMessageUnlabeled(labelID string, msg *Message, rest []Message) {
	ctx := c.Context(labelID)
	if ctx == nil {
		return
	}
	if ctx.NumMessages <= 1 {
		c.dropContext(labelID)
		return
	}
	ctx.NumMessages--
	if !msg.IsRead {
		ctx.NumUnread = max(ctx.NumUnread-1, 0)
	}
	ctx.NumAttachments = max(ctx.NumAttachments-msg.NumAttachments, 0)
	if ctx.Size -= msg.Size; ctx.Size < 0 {
		ctx.Size = 0
	}

	var t int64
	for i := range rest {
		if rest[i].ID == msg.ID {
			continue
		}
		if rest[i].HasLabel(labelID) && rest[i].Time > t {
			t = rest[i].Time
		}
	}
	ctx.Time = t
}

// ApplyReadChange patches unread counters after msg flipped between read
// and unread. Call only when the flag actually changed.
func (c *Conversation) ApplyReadChange(msg *Message, read bool) {
	delta := 1
	if read {
		delta = -1
	}
	c.NumUnread = max(c.NumUnread+delta, 0)
	for _, l := range msg.LabelIDs {
		if ctx := c.Context(l); ctx != nil {
			ctx.NumUnread = max(ctx.NumUnread+delta, 0)
		}
	}
}

// ApplyMessageAdded patches the conversation-level aggregates and every
// label context for a message newly joining the conversation.
func (c *Conversation) ApplyMessageAdded(msg *Message) {
	c.NumMessages++
	if !msg.IsRead {
		c.NumUnread++
	}
	c.NumAttachments += msg.NumAttachments
	c.Size += msg.Size
	if msg.Time > c.Order {
		c.Order = msg.Time
	}
	for _, l := range msg.LabelIDs {
		c.ApplyMessageLabeled(l, msg)
	}
}

// ApplyMessageRemoved patches the conversation-level aggregates and every
// label context for a message leaving the conversation. rest holds the
// remaining messages.
func (c *Conversation) ApplyMessageRemoved(msg *Message, rest []Message) {
	c.NumMessages = max(c.NumMessages-1, 0)
	if !msg.IsRead {
		c.NumUnread = max(c.NumUnread-1, 0)
	}
	c.NumAttachments = max(c.NumAttachments-msg.NumAttachments, 0)
	if c.Size -= msg.Size; c.Size < 0 {
		c.Size = 0
	}
	for _, l := range msg.LabelIDs {
		c.ApplyMessageUnlabeled(l, msg, rest)
	}
}

func (c *Conversation) dropContext(labelID string) {
	for i := range c.Labels {
		if c.Labels[i].LabelID == labelID {
			c.Labels = append(c.Labels[:i], c.Labels[i+1:]...)
			return
		}
	}
}

// Rollup folds msgs into a fresh Conversation aggregate. It is the
// reference computation the incremental patches above must agree with.
func Rollup(id, userID, subject string, msgs []Message) Conversation {
	c := Conversation{ID: id, UserID: userID, Subject: subject}
	for i := range msgs {
		c.ApplyMessageAdded(&msgs[i])
	}
	return c
}
