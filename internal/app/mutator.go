package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/outbox"
	"github.com/mailpouch/mailpouch/internal/store"
)

// Mutator applies user mutations optimistically to the local stores,
// keeps the conversation aggregates consistent with their messages, and
// enqueues durable remote-mirroring jobs. Local changes are never rolled
// back on error; a later reconciling sync corrects drift.
type Mutator struct {
	store   store.Store
	enqueue outbox.Enqueuer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutator creates a mutation engine over the given store handles,
// scoped to one user session.
func NewMutator(st store.Store, enq outbox.Enqueuer) *Mutator {
	return &Mutator{store: st, enqueue: enq, locks: make(map[string]*sync.Mutex)}
}

// BatchResult reports the per-id outcome of a best-effort batch: a failed
// id never aborts its siblings.
type BatchResult struct {
	OK     []string
	Failed map[string]error
}

// Err returns nil when every id succeeded, else a summary error.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d ids failed", len(r.Failed), len(r.Failed)+len(r.OK))
}

// lock serializes mutations per conversation id, so the multi-step
// load/patch/persist sequence never interleaves for the same aggregate.
func (m *Mutator) lock(id string) func() {
	m.mu.Lock()
	l := m.locks[id]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// eachConversation runs fn per conversation id under the per-id lock,
// with the conversation row and its messages (newest-first) loaded.
func (m *Mutator) eachConversation(ctx context.Context, userID string, ids []string, fn func(conv *domain.Conversation, msgs []domain.Message) error) BatchResult {
	res := BatchResult{Failed: make(map[string]error)}
	for _, id := range ids {
		unlock := m.lock(id)
		err := func() error {
			conv, err := m.store.GetConversation(ctx, userID, id)
			if err != nil {
				return err
			}
			msgs, err := m.store.ListConversationMessages(ctx, userID, id)
			if err != nil {
				return err
			}
			return fn(conv, msgs)
		}()
		unlock()
		if err != nil {
			res.Failed[id] = err
			continue
		}
		res.OK = append(res.OK, id)
	}
	return res
}

// labelLookup resolves user-defined labels through the label store for
// the exclusive-vs-tag classification.
func (m *Mutator) labelLookup(ctx context.Context, userID string) domain.LabelLookup {
	return func(labelID string) (domain.Label, bool) {
		l, err := m.store.GetLabel(ctx, userID, labelID)
		if err != nil {
			return domain.Label{}, false
		}
		return *l, true
	}
}

// MarkRead marks every message of each conversation as read.
func (m *Mutator) MarkRead(ctx context.Context, userID string, ids []string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var changed []domain.Message
		for i := range msgs {
			if msgs[i].IsRead {
				continue
			}
			msgs[i].IsRead = true
			conv.ApplyReadChange(&msgs[i], true)
			changed = append(changed, msgs[i])
		}
		return m.persist(ctx, userID, conv, changed)
	})
	m.mirror(ctx, userID, outbox.KindMarkRead, res.OK, outbox.Params{})
	return res
}

// MarkUnread flips exactly one message per conversation to unread: the
// newest read, non-draft message under the given location. Conversation
// unread is a rollup concept, not an all-messages property.
func (m *Mutator) MarkUnread(ctx context.Context, userID string, ids []string, locationID string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		for i := range msgs { // newest first
			if !msgs[i].IsRead || msgs[i].IsDraft() || !msgs[i].HasLabel(locationID) {
				continue
			}
			msgs[i].IsRead = false
			conv.ApplyReadChange(&msgs[i], false)
			return m.persist(ctx, userID, conv, msgs[i:i+1])
		}
		return nil // nothing read under this location; no-op
	})
	m.mirror(ctx, userID, outbox.KindMarkUnread, res.OK, outbox.Params{LabelID: locationID})
	return res
}

// Star adds the Starred label to every message of each conversation.
func (m *Mutator) Star(ctx context.Context, userID string, ids []string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var changed []domain.Message
		for i := range msgs {
			msgs[i].IsStarred = true
			if msgs[i].AddLabel(domain.LabelStarred) {
				conv.ApplyMessageLabeled(domain.LabelStarred, &msgs[i])
				changed = append(changed, msgs[i])
			}
		}
		return m.persist(ctx, userID, conv, changed)
	})
	m.mirror(ctx, userID, outbox.KindStar, res.OK, outbox.Params{})
	return res
}

// Unstar removes the Starred label from every message of each conversation.
func (m *Mutator) Unstar(ctx context.Context, userID string, ids []string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var changed []domain.Message
		for i := range msgs {
			msgs[i].IsStarred = false
			if msgs[i].RemoveLabel(domain.LabelStarred) {
				conv.ApplyMessageUnlabeled(domain.LabelStarred, &msgs[i], msgs)
				changed = append(changed, msgs[i])
			}
		}
		return m.persist(ctx, userID, conv, changed)
	})
	m.mirror(ctx, userID, outbox.KindUnstar, res.OK, outbox.Params{})
	return res
}

// Label adds labelID to every message of each conversation.
func (m *Mutator) Label(ctx context.Context, userID string, ids []string, labelID string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var changed []domain.Message
		for i := range msgs {
			if msgs[i].AddLabel(labelID) {
				conv.ApplyMessageLabeled(labelID, &msgs[i])
				changed = append(changed, msgs[i])
			}
		}
		return m.persist(ctx, userID, conv, changed)
	})
	m.mirror(ctx, userID, outbox.KindLabel, res.OK, outbox.Params{LabelID: labelID})
	return res
}

// Unlabel removes labelID from every message of each conversation.
func (m *Mutator) Unlabel(ctx context.Context, userID string, ids []string, labelID string) BatchResult {
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var changed []domain.Message
		for i := range msgs {
			if msgs[i].RemoveLabel(labelID) {
				conv.ApplyMessageUnlabeled(labelID, &msgs[i], msgs)
				changed = append(changed, msgs[i])
			}
		}
		return m.persist(ctx, userID, conv, changed)
	})
	m.mirror(ctx, userID, outbox.KindUnlabel, res.OK, outbox.Params{LabelID: labelID})
	return res
}

// MoveToFolder files each conversation's messages into folderID. Only
// exclusive labels are stripped; the AllDrafts/AllSent/AllMail/Starred
// pseudo-locations and tag labels always survive. Moving into the Inbox
// restores the Sent and Drafts locations for messages that are AllSent or
// AllDrafts members.
func (m *Mutator) MoveToFolder(ctx context.Context, userID string, ids []string, folderID string) BatchResult {
	lookup := m.labelLookup(ctx, userID)
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		for i := range msgs {
			msg := &msgs[i]
			for _, l := range domain.StripOnMove(msg.LabelIDs, folderID, lookup) {
				if msg.RemoveLabel(l) {
					conv.ApplyMessageUnlabeled(l, msg, msgs)
				}
			}
			if msg.AddLabel(folderID) {
				conv.ApplyMessageLabeled(folderID, msg)
			}
			if folderID == domain.LabelInbox {
				if msg.HasLabel(domain.LabelAllSent) && msg.AddLabel(domain.LabelSent) {
					conv.ApplyMessageLabeled(domain.LabelSent, msg)
				}
				if msg.HasLabel(domain.LabelAllDrafts) && msg.AddLabel(domain.LabelDrafts) {
					conv.ApplyMessageLabeled(domain.LabelDrafts, msg)
				}
			}
		}
		return m.persist(ctx, userID, conv, msgs)
	})
	m.mirror(ctx, userID, outbox.KindMove, res.OK, outbox.Params{FolderID: folderID})
	return res
}

// Delete removes each conversation's messages filed under the current
// folder; when that was all of them the conversation row goes too. The
// whole unit runs detached from the caller's cancellation, since a
// partial delete would leave the aggregate inconsistent with its
// messages.
func (m *Mutator) Delete(ctx context.Context, userID string, ids []string, currentFolderID string) BatchResult {
	ctx = context.WithoutCancel(ctx)
	res := m.eachConversation(ctx, userID, ids, func(conv *domain.Conversation, msgs []domain.Message) error {
		var doomed []domain.Message
		remaining := make([]domain.Message, 0, len(msgs))
		for i := range msgs {
			if msgs[i].HasLabel(currentFolderID) {
				doomed = append(doomed, msgs[i])
			} else {
				remaining = append(remaining, msgs[i])
			}
		}
		if len(doomed) == 0 {
			return nil
		}

		doomedIDs := make([]string, len(doomed))
		for i := range doomed {
			doomedIDs[i] = doomed[i].ID
		}
		if err := m.store.DeleteMessages(ctx, userID, doomedIDs); err != nil {
			return err
		}

		// Last message gone: the conversation goes with it.
		if len(remaining) == 0 {
			return m.store.DeleteConversation(ctx, userID, conv.ID)
		}

		for i := range doomed {
			conv.ApplyMessageRemoved(&doomed[i], remaining)
		}
		return m.store.UpsertConversation(ctx, conv)
	})
	m.mirror(ctx, userID, outbox.KindDelete, res.OK, outbox.Params{FolderID: currentFolderID})
	return res
}

// MarkMessagesRead flips the read flag on individual messages and patches
// the owning conversations' counters.
func (m *Mutator) MarkMessagesRead(ctx context.Context, userID string, ids []string, read bool) BatchResult {
	res := m.eachMessage(ctx, userID, ids, func(msg *domain.Message, conv *domain.Conversation) bool {
		if msg.IsRead == read {
			return false
		}
		msg.IsRead = read
		if conv != nil {
			conv.ApplyReadChange(msg, read)
		}
		return true
	})
	kind := outbox.KindMarkRead
	if !read {
		kind = outbox.KindMarkUnread
	}
	m.mirror(ctx, userID, kind, res.OK, outbox.Params{})
	return res
}

// StarMessages adds or removes the star on individual messages.
func (m *Mutator) StarMessages(ctx context.Context, userID string, ids []string, starred bool) BatchResult {
	res := m.eachMessage(ctx, userID, ids, func(msg *domain.Message, conv *domain.Conversation) bool {
		msg.IsStarred = starred
		if starred {
			if !msg.AddLabel(domain.LabelStarred) {
				return false
			}
			if conv != nil {
				conv.ApplyMessageLabeled(domain.LabelStarred, msg)
			}
			return true
		}
		if !msg.RemoveLabel(domain.LabelStarred) {
			return false
		}
		if conv != nil {
			m.unlabelWithSiblings(ctx, userID, conv, msg, domain.LabelStarred)
		}
		return true
	})
	kind := outbox.KindStar
	if !starred {
		kind = outbox.KindUnstar
	}
	m.mirror(ctx, userID, kind, res.OK, outbox.Params{})
	return res
}

// LabelMessages adds or removes labelID on individual messages.
func (m *Mutator) LabelMessages(ctx context.Context, userID string, ids []string, labelID string, add bool) BatchResult {
	res := m.eachMessage(ctx, userID, ids, func(msg *domain.Message, conv *domain.Conversation) bool {
		if add {
			if !msg.AddLabel(labelID) {
				return false
			}
			if conv != nil {
				conv.ApplyMessageLabeled(labelID, msg)
			}
			return true
		}
		if !msg.RemoveLabel(labelID) {
			return false
		}
		if conv != nil {
			m.unlabelWithSiblings(ctx, userID, conv, msg, labelID)
		}
		return true
	})
	kind := outbox.KindLabel
	if !add {
		kind = outbox.KindUnlabel
	}
	m.mirror(ctx, userID, kind, res.OK, outbox.Params{LabelID: labelID})
	return res
}

// unlabelWithSiblings patches a context removal that needs the sibling
// messages to recompute the label's max time.
func (m *Mutator) unlabelWithSiblings(ctx context.Context, userID string, conv *domain.Conversation, msg *domain.Message, labelID string) {
	siblings, err := m.store.ListConversationMessages(ctx, userID, conv.ID)
	if err != nil {
		log.Printf("[mutate] failed to load siblings of %s: %v", msg.ID, err)
		siblings = nil
	}
	conv.ApplyMessageUnlabeled(labelID, msg, siblings)
}

// eachMessage runs fn per message id; fn reports whether the message
// changed. Changed messages and their patched conversations are persisted.
func (m *Mutator) eachMessage(ctx context.Context, userID string, ids []string, fn func(msg *domain.Message, conv *domain.Conversation) bool) BatchResult {
	res := BatchResult{Failed: make(map[string]error)}
	for _, id := range ids {
		err := func() error {
			msg, err := m.store.GetMessage(ctx, userID, id)
			if err != nil {
				return err
			}

			var conv *domain.Conversation
			var unlock func()
			if msg.ConversationID != "" {
				unlock = m.lock(msg.ConversationID)
				defer func() {
					if unlock != nil {
						unlock()
					}
				}()
				if conv, err = m.store.GetConversation(ctx, userID, msg.ConversationID); err != nil {
					return err
				}
			}

			if !fn(msg, conv) {
				return nil
			}
			if err := m.store.UpsertMessage(ctx, msg); err != nil {
				return err
			}
			if conv != nil {
				return m.store.UpsertConversation(ctx, conv)
			}
			return nil
		}()
		if err != nil {
			res.Failed[id] = err
			continue
		}
		res.OK = append(res.OK, id)
	}
	return res
}

// persist writes the changed messages and the patched conversation.
func (m *Mutator) persist(ctx context.Context, userID string, conv *domain.Conversation, changed []domain.Message) error {
	if len(changed) == 0 {
		return nil
	}
	if err := m.store.UpsertMessages(ctx, userID, changed); err != nil {
		return err
	}
	return m.store.UpsertConversation(ctx, conv)
}

// mirror enqueues the durable remote-mirroring jobs for the ids that
// succeeded locally, chunked to the scheduler's batch limit. The enqueue
// runs detached from the caller's lifetime: an optimistic local mutation
// must eventually reach the server even if the caller goes away. Enqueue
// failures are logged, never surfaced; the reconciling sync is the
// backstop.
func (m *Mutator) mirror(ctx context.Context, userID string, kind outbox.Kind, ids []string, params outbox.Params) {
	if len(ids) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, chunk := range outbox.Chunk(ids, outbox.MaxBatchIDs) {
		job := outbox.NewJob(userID, kind, chunk, params)
		if err := m.enqueue.Enqueue(ctx, job); err != nil {
			log.Printf("[mutate] failed to enqueue %s job for %d ids: %v", kind, len(chunk), err)
		}
	}
}
