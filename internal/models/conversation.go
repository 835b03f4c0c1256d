package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Conversation is the thread between exactly two users. PairKey is the
// order-independent identity of the pair and is unique, so (A,B) and (B,A)
// always resolve to the same row.
type Conversation struct {
	ID         string         `gorm:"primaryKey" json:"_id"`
	Sender     string         `gorm:"index;not null" json:"sender"`
	Receiver   string         `gorm:"index;not null" json:"receiver"`
	PairKey    string         `gorm:"uniqueIndex;not null" json:"-"`
	MessageIDs pq.StringArray `gorm:"type:text[]" json:"messages"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"index:,sort:desc" json:"updatedAt"`

	// Populated on read.
	Messages     []Message `gorm:"foreignKey:ConversationID" json:"-"`
	SenderUser   *User     `gorm:"foreignKey:Sender" json:"-"`
	ReceiverUser *User     `gorm:"foreignKey:Receiver" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.PairKey == "" {
		c.PairKey = PairKey(c.Sender, c.Receiver)
	}
	return
}

// PairKey builds the normalised key for an unordered user pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// Involves reports whether userID is one of the two participants.
func (c *Conversation) Involves(userID string) bool {
	return c.Sender == userID || c.Receiver == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.Sender == userID {
		return c.Receiver
	}
	return c.Sender
}


// SortMessages puts Messages in the order their ids were appended. Messages
// missing from MessageIDs go last, oldest first.
func (c *Conversation) SortMessages() {
	pos := make(map[string]int, len(c.MessageIDs))
	for i, id := range c.MessageIDs {
		pos[id] = i
	}
	sort.SliceStable(c.Messages, func(i, j int) bool {
		pi, iok := pos[c.Messages[i].ID]
		pj, jok := pos[c.Messages[j].ID]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return c.Messages[i].CreatedAt.Before(c.Messages[j].CreatedAt)
		}
	})
}
