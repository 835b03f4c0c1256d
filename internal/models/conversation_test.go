package models_test

import (
	"chatsync/backend/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKey_IsOrderIndependent(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"sorted input", "alice", "bob"},
		{"reversed input", "bob", "alice"},
		{"uuids", "9b1d-ffff", "0a2c-0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, models.PairKey(tt.a, tt.b), models.PairKey(tt.b, tt.a))
		})
	}

	assert.Equal(t, "alice:bob", models.PairKey("bob", "alice"))
}

func TestConversationBeforeCreate(t *testing.T) {
	conv := &models.Conversation{Sender: "bob", Receiver: "alice"}

	err := conv.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "alice:bob", conv.PairKey)
}

func TestConversation_Participants(t *testing.T) {
	conv := &models.Conversation{Sender: "a", Receiver: "b"}

	assert.True(t, conv.Involves("a"))
	assert.True(t, conv.Involves("b"))
	assert.False(t, conv.Involves("c"))
	assert.Equal(t, "b", conv.Other("a"))
	assert.Equal(t, "a", conv.Other("b"))
}

func TestMessageBeforeCreate_Defaults(t *testing.T) {
	msg := &models.Message{Text: "hi", MsgByUserID: "a"}

	err := msg.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, models.StatusSent, msg.Status)
	assert.False(t, msg.Seen)

	delivered := &models.Message{Text: "hi", Status: models.StatusDelivered}
	assert.NoError(t, delivered.BeforeCreate(nil))
	assert.Equal(t, models.StatusDelivered, delivered.Status, "explicit status is kept")
}

func TestMessage_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		msg  models.Message
		want bool
	}{
		{"nothing", models.Message{}, true},
		{"text only", models.Message{Text: "hello"}, false},
		{"image only", models.Message{ImageURL: "https://cdn/x.png"}, false},
		{"video only", models.Message{VideoURL: "https://cdn/x.mp4"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.IsEmpty())
		})
	}
}

func TestConversation_SortMessagesFollowsAppendOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := &models.Conversation{
		MessageIDs: []string{"m1", "m2", "m3"},
		Messages: []models.Message{
			{ID: "stray", CreatedAt: at.Add(-time.Hour)},
			{ID: "m3", CreatedAt: at},
			{ID: "m1", CreatedAt: at},
			{ID: "m2", CreatedAt: at},
		},
	}

	conv.SortMessages()

	ids := make([]string, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "stray"}, ids)
}
