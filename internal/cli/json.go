package cli

import (
	"time"

	"github.com/mailpouch/mailpouch/internal/app"
	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/outbox"
)

// JSON output types mirror what the table renderers show, with stable
// field names for scripting.

type jsonConversation struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Messages    int    `json:"messages"`
	Unread      int    `json:"unread"`
	Attachments int    `json:"attachments,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Date        string `json:"date"`
}

func toJSONConversations(convs []domain.Conversation, labelID string) []jsonConversation {
	out := make([]jsonConversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, jsonConversation{
			ID:          c.ID,
			Subject:     c.Subject,
			Messages:    c.NumMessages,
			Unread:      c.NumUnread,
			Attachments: c.NumAttachments,
			Size:        c.Size,
			Date:        time.Unix(c.ContextTime(labelID), 0).UTC().Format(time.RFC3339),
		})
	}
	return out
}

type jsonMessage struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject,omitempty"`
	Date        string   `json:"date"`
	Read        bool     `json:"read"`
	Starred     bool     `json:"starred"`
	Attachments int      `json:"attachments,omitempty"`
	Labels      []string `json:"labels"`
}

type jsonConversationDetail struct {
	jsonConversation
	MessageList []jsonMessage `json:"message_list"`
}

func toJSONConversationDetail(conv *domain.Conversation, msgs []domain.Message) jsonConversationDetail {
	detail := jsonConversationDetail{
		jsonConversation: jsonConversation{
			ID:          conv.ID,
			Subject:     conv.Subject,
			Messages:    conv.NumMessages,
			Unread:      conv.NumUnread,
			Attachments: conv.NumAttachments,
			Size:        conv.Size,
			Date:        time.Unix(conv.Order, 0).UTC().Format(time.RFC3339),
		},
	}
	for _, m := range msgs {
		detail.MessageList = append(detail.MessageList, jsonMessage{
			ID:          m.ID,
			Subject:     m.Subject,
			Date:        time.Unix(m.Time, 0).UTC().Format(time.RFC3339),
			Read:        m.IsRead,
			Starred:     m.IsStarred,
			Attachments: m.NumAttachments,
			Labels:      m.LabelIDs,
		})
	}
	return detail
}

type jsonLabel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Exclusive bool   `json:"exclusive"`
	Color     string `json:"color,omitempty"`
}

func toJSONLabels(labels []domain.Label) []jsonLabel {
	out := make([]jsonLabel, 0, len(labels))
	for _, l := range labels {
		out = append(out, jsonLabel{
			ID:        l.ID,
			Name:      l.Name,
			Type:      string(l.Type),
			Exclusive: l.Exclusive,
			Color:     l.Color,
		})
	}
	return out
}

type jsonCounter struct {
	LabelID string `json:"label_id"`
	Type    string `json:"type"`
	Count   int    `json:"count"`
}

func toJSONCounters(counters []domain.UnreadCounter) []jsonCounter {
	out := make([]jsonCounter, 0, len(counters))
	for _, c := range counters {
		out = append(out, jsonCounter{
			LabelID: c.LabelID,
			Type:    string(c.Type),
			Count:   c.Count,
		})
	}
	return out
}

type jsonJob struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	IDs       []string `json:"ids"`
	LabelID   string   `json:"label_id,omitempty"`
	FolderID  string   `json:"folder_id,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func toJSONJobs(jobs []outbox.Job) []jsonJob {
	out := make([]jsonJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jsonJob{
			ID:        j.ID,
			Kind:      string(j.Kind),
			IDs:       j.IDs,
			LabelID:   j.Params.LabelID,
			FolderID:  j.Params.FolderID,
			CreatedAt: j.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

type jsonBatch struct {
	OK     []string          `json:"ok"`
	Failed map[string]string `json:"failed,omitempty"`
}

func toJSONBatch(res app.BatchResult) jsonBatch {
	b := jsonBatch{OK: res.OK}
	if len(res.Failed) > 0 {
		b.Failed = make(map[string]string, len(res.Failed))
		for id, err := range res.Failed {
			b.Failed[id] = err.Error()
		}
	}
	return b
}
