package chathub

import (
	"context"

	"chatsync/backend/internal/models"
)

// ConversationLister is the store query the sidebar is built from.
type ConversationLister interface {
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
}

// BuildSidebar loads userID's conversations and summarises them.
func BuildSidebar(ctx context.Context, store ConversationLister, userID string) ([]models.ConversationSummary, error) {
	convs, err := store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(userID, convs), nil
}

// Summarize turns loaded conversations into sidebar rows, keeping their
// order. Conversations userID is not part of are skipped.
func Summarize(userID string, convs []models.Conversation) []models.ConversationSummary {
	out := make([]models.ConversationSummary, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		if !conv.Involves(userID) {
			continue
		}

		unseen := 0
		for _, msg := range conv.Messages {
			if msg.MsgByUserID != userID && !msg.Seen {
				unseen++
			}
		}

		var last *models.Message
		if n := len(conv.Messages); n > 0 {
			msg := conv.Messages[n-1]
			last = &msg
		}

		sender := participant(conv.SenderUser, conv.Sender)
		receiver := participant(conv.ReceiverUser, conv.Receiver)
		other := receiver
		if conv.Other(userID) == conv.Sender {
			other = sender
		}

		out = append(out, models.ConversationSummary{
			ID:        conv.ID,
			Sender:    sender,
			Receiver:  receiver,
			OtherUser: other,
			UnseenMsg: unseen,
			LastMsg:   last,
		})
	}
	return out
}

func participant(u *models.User, id string) models.UserSummary {
	s := u.Summary()
	if s.ID == "" {
		s.ID = id
	}
	return s
}
