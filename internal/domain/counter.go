package domain

type CounterType string

const (
	CounterMessages      CounterType = "messages"
	CounterConversations CounterType = "conversations"
)

// UnreadCounter is the cached per-label unread count. It is refreshed on
// demand rather than derived transactionally, so it may be briefly stale.
type UnreadCounter struct {
	UserID  string
	LabelID string
	Type    CounterType
	Count   int
}
