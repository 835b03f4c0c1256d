package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the participant profile. Accounts are managed elsewhere; the chat
// backend only reads profiles and writes LastSeen on disconnect.
type User struct {
	ID         string     `gorm:"primaryKey" json:"_id"`
	Name       string     `json:"name"`
	Mobile     string     `gorm:"index" json:"mobile"`
	ProfilePic string     `json:"profile_pic"`
	LastSeen   *time.Time `json:"lastSeen"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// BeforeCreate fills in a UUID when the caller did not set one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// UserSummary is the participant view embedded in sidebar entries.
type UserSummary struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// Summary returns the sidebar view of u. A nil user yields an empty summary.
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	return UserSummary{ID: u.ID, Name: u.Name, ProfilePic: u.ProfilePic}
}
