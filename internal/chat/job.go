package chat

import "time"

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
)

// NotificationJob is one queued "tell the other participant about this
// message" unit of work, consumed by cmd/notifier.
type NotificationJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	ConversationKey string `gorm:"size:64;index;not null"`
	RecipientID     string `gorm:"size:26;index;not null"`
	MessageID       uint64 `gorm:"not null"`

	// One job per message per recipient, however many times the publish is retried.
	IdempotencyKey string `gorm:"type:varchar(128);uniqueIndex" json:"idempotency_key"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationJob) TableName() string { return "notification_jobs" }
