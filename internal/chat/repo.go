package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// EnsureConversation is an idempotent create-or-fetch of the metadata row. The
// insert is ON CONFLICT DO NOTHING on the key column, so a racing creator
// never overwrites the winner's row; both initiators then read back the one
// surviving record.
func (r *Repo) EnsureConversation(ctx context.Context, conv *Conversation) (*Conversation, error) {
	if conv.LastActivityAt.IsZero() {
		conv.LastActivityAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(conv).Error; err != nil {
		return nil, err
	}
	return r.GetConversation(ctx, conv.Key)
}

func (r *Repo) GetConversation(ctx context.Context, key string) (*Conversation, error) {
	var c Conversation
	if err := r.db.WithContext(ctx).
		Where("`key` = ?", key).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchOnMessage merges only the preview and activity columns; participants
// and kind are never written after creation.
func (r *Repo) TouchOnMessage(ctx context.Context, key, preview string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Conversation{}).
		Where("`key` = ?", key).
		Updates(map[string]any{
			"last_message_preview": preview,
			"last_activity_at":     at,
		}).Error
}

// AppendMessage inserts m and refreshes the conversation's preview and
// activity columns in one transaction, so the metadata can never point at a
// message that was not committed.
func (r *Repo) AppendMessage(ctx context.Context, m *Message, preview string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).
			Where("`key` = ?", m.ConversationKey).
			Updates(map[string]any{
				"last_message_preview": preview,
				"last_activity_at":     m.SentAt,
			}).Error
	})
}

// ListMessagesAsc returns the full history of one conversation, oldest
// first. Ties on sent_at fall back to insertion order.
func (r *Repo) ListMessagesAsc(ctx context.Context, key string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("conversation_key = ?", key).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListForParticipant returns the private conversations userID belongs to,
// most recently active first.
func (r *Repo) ListForParticipant(ctx context.Context, userID string) ([]Conversation, error) {
	var convs []Conversation
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND (participant_lo = ? OR participant_hi = ?)", KindPrivate, userID, userID).
		Order("last_activity_at DESC").
		Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// Job CRUD
func (r *Repo) GetJobByID(ctx context.Context, id string) (*NotificationJob, error) {
	var j NotificationJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobOrGetExisting tries to create a job, but if the idempotency key
// already exists, it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *NotificationJob) (*NotificationJob, bool, error) {
	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	var existing NotificationJob
	getErr := r.db.WithContext(ctx).
		Where("idempotency_key = ?", job.IdempotencyKey).
		First(&existing).Error
	if getErr == nil {
		return &existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&NotificationJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSent,
			"error":  nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&NotificationJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
		}).Error
}
