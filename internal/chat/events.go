package chat

type EventType string

const (
	EventMessage      EventType = "message"
	EventConversation EventType = "conversation"
)

// Event is one committed delta, as delivered to subscribers and carried over
// the cross-instance bus. Topic is either a conversation key or a per-user
// inbox topic (see InboxTopic).
type Event struct {
	Type         EventType     `json:"type"`
	Topic        string        `json:"topic"`
	Message      *Message      `json:"message,omitempty"`
	Conversation *Conversation `json:"conversation,omitempty"`
}

// InboxTopic names the per-user topic that carries conversation metadata
// updates for the live recent-conversations list.
func InboxTopic(userID string) string {
	return "user:" + userID
}
