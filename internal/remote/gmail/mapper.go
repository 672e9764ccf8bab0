package gmail

import (
	"github.com/mailpouch/mailpouch/internal/domain"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Gmail's system labels map onto the fixed numeric location ids. SENT and
// DRAFT each expand to both the plain location and its pseudo-location
// twin, matching how the aggregates distinguish "lives in Sent" from "was
// ever sent".
var locationsByGmailLabel = map[string][]string{
	"INBOX":   {domain.LabelInbox},
	"SENT":    {domain.LabelSent, domain.LabelAllSent},
	"DRAFT":   {domain.LabelDrafts, domain.LabelAllDrafts},
	"TRASH":   {domain.LabelTrash},
	"SPAM":    {domain.LabelSpam},
	"STARRED": {domain.LabelStarred},
}

var gmailLabelByLocation = map[string]string{
	domain.LabelInbox:     "INBOX",
	domain.LabelSent:      "SENT",
	domain.LabelAllSent:   "SENT",
	domain.LabelDrafts:    "DRAFT",
	domain.LabelAllDrafts: "DRAFT",
	domain.LabelTrash:     "TRASH",
	domain.LabelSpam:      "SPAM",
	domain.LabelStarred:   "STARRED",
}

// exclusive locations a message can be filed into; used to detect
// archived messages, which Gmail expresses by the absence of any of them.
var gmailFolders = map[string]bool{
	"INBOX": true, "SENT": true, "DRAFT": true, "TRASH": true, "SPAM": true,
}

// mapLabelIDs translates a message's Gmail label set into the local label
// vocabulary. Every message is an AllMail member; one without any folder
// label is archived.
func mapLabelIDs(gmailLabels []string) []string {
	labelIDs := []string{domain.LabelAllMail}
	inFolder := false
	for _, l := range gmailLabels {
		if l == "UNREAD" {
			continue // read state is a flag, not a label
		}
		if locs, ok := locationsByGmailLabel[l]; ok {
			labelIDs = append(labelIDs, locs...)
			inFolder = inFolder || gmailFolders[l]
			continue
		}
		if l == "IMPORTANT" || l == "CATEGORY_PERSONAL" || l == "CATEGORY_SOCIAL" ||
			l == "CATEGORY_PROMOTIONS" || l == "CATEGORY_UPDATES" || l == "CATEGORY_FORUMS" {
			continue // gmail-internal buckets the engine does not track
		}
		labelIDs = append(labelIDs, l) // user label ids pass through
	}
	if !inFolder {
		labelIDs = append(labelIDs, domain.LabelArchive)
	}
	return labelIDs
}

// mapMessage converts a Gmail API message into a local summary record.
func mapMessage(userID string, msg *gmailapi.Message) domain.Message {
	var subject string
	var attachments int
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			if h.Name == "Subject" {
				subject = h.Value
				break
			}
		}
		attachments = countAttachments(msg.Payload)
	}

	return domain.Message{
		ID:             msg.Id,
		UserID:         userID,
		ConversationID: msg.ThreadId,
		Subject:        subject,
		Time:           msg.InternalDate / 1000, // gmail reports millis
		IsRead:         !containsLabel(msg.LabelIds, "UNREAD"),
		IsStarred:      containsLabel(msg.LabelIds, "STARRED"),
		NumAttachments: attachments,
		Size:           msg.SizeEstimate,
		LabelIDs:       mapLabelIDs(msg.LabelIds),
	}
}

// mapThread rolls a fully hydrated Gmail thread up into a conversation
// aggregate plus its mapped messages.
func mapThread(userID string, t *gmailapi.Thread) (domain.Conversation, []domain.Message) {
	msgs := make([]domain.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, mapMessage(userID, m))
	}
	subject := ""
	if len(msgs) > 0 {
		subject = msgs[0].Subject
	}
	return domain.Rollup(t.Id, userID, subject, msgs), msgs
}

// mapLabel converts a Gmail label definition, folding system labels onto
// their numeric location ids.
func mapLabel(userID string, l *gmailapi.Label) domain.Label {
	id := l.Id
	labelType := domain.LabelTypeUser
	if l.Type == "system" {
		labelType = domain.LabelTypeSystem
		if locs, ok := locationsByGmailLabel[l.Id]; ok {
			id = locs[0]
		}
	}

	color := ""
	if l.Color != nil {
		color = l.Color.BackgroundColor
	}

	return domain.Label{
		ID:     id,
		UserID: userID,
		Name:   l.Name,
		Type:   labelType,
		Color:  color,
	}
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func countAttachments(part *gmailapi.MessagePart) int {
	n := 0
	if part.Filename != "" && part.Body != nil {
		n++
	}
	for _, p := range part.Parts {
		n += countAttachments(p)
	}
	return n
}
