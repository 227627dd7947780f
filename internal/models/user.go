package models

import "time"

type User struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"user_id"`

	// Email doubles as the discovery address.
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName  string `gorm:"type:varchar(64);not null" json:"display_name"`
	AvatarURL    string `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	PasswordHash string `gorm:"type:varchar(128);not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
