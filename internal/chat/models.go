package chat

import "time"

type Kind string

const (
	KindBroadcast Kind = "broadcast"
	KindPrivate   Kind = "private"
)

// Conversation is the per-key metadata record. Exactly one row exists per
// key; participant columns are written once at creation and never updated.
type Conversation struct {
	ID  uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	Key string `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"`

	Kind Kind `gorm:"type:varchar(16);not null" json:"kind"`

	// Sorted pair for private conversations, empty for broadcast. Sorting at
	// write time keeps concurrent initiators writing identical rows.
	ParticipantLo string `gorm:"type:varchar(26);index" json:"participant_lo,omitempty"`
	ParticipantHi string `gorm:"type:varchar(26);index" json:"participant_hi,omitempty"`

	LastMessagePreview string    `gorm:"type:varchar(255)" json:"last_message_preview,omitempty"`
	LastActivityAt     time.Time `gorm:"index;not null" json:"last_activity_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Conversation) TableName() string { return "conversations" }

func (c *Conversation) ParticipantIDs() []string {
	if c.Kind != KindPrivate {
		return nil
	}
	return []string{c.ParticipantLo, c.ParticipantHi}
}

// Message is append-only. SentAt is assigned by the server at append time;
// the autoincrement ID breaks ties between identical timestamps.
type Message struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationKey string    `gorm:"type:varchar(64);index:idx_msg_key_sent,priority:1;not null" json:"conversation_key"`
	SenderID        string    `gorm:"type:varchar(26);index;not null" json:"sender_id"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	SentAt          time.Time `gorm:"index:idx_msg_key_sent,priority:2;not null" json:"sent_at"`
}

func (Message) TableName() string { return "messages" }
