package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus tracks delivery of a single message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

// Message is one chat message. Messages are never deleted; only Status and
// Seen change after creation.
type Message struct {
	ID             string        `gorm:"primaryKey" json:"_id"`
	ConversationID string        `gorm:"index;not null" json:"-"`
	Text           string        `gorm:"default:''" json:"text"`
	ImageURL       string        `gorm:"default:''" json:"imageUrl"`
	VideoURL       string        `gorm:"default:''" json:"videoUrl"`
	Seen           bool          `gorm:"default:false" json:"seen"`
	MsgByUserID    string        `gorm:"index;not null" json:"msgByUserId"`
	Status         MessageStatus `gorm:"type:varchar(16);default:'sent'" json:"status"`
	CreatedAt      time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = StatusSent
	}
	return
}

// IsEmpty reports whether the message carries neither text nor media.
func (m *Message) IsEmpty() bool {
	return m.Text == "" && m.ImageURL == "" && m.VideoURL == ""
}
