package chathub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chatsync/backend/internal/models"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleEvent dispatches one inbound event for c. Validation failures are
// dropped; store failures are reported to c alone and the connection stays up.
func (m *ManagerService) HandleEvent(ctx context.Context, c Client, env models.Envelope) {
	ctx, span := m.tracer.Start(ctx, "ManagerService.HandleEvent",
		trace.WithAttributes(
			attribute.String("event", env.Event),
			attribute.String("user_id", c.GetUserID()),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			m.log.Error("hub - event - panicked",
				slog.String("event", env.Event),
				slog.String("user_id", c.GetUserID()),
				slog.Any("error", err),
			)
			m.emitError(c, env.Event, err)
		}
	}()

	var err error
	switch env.Event {
	case models.EventChatScreen:
		err = m.handleChatScreen(c, env.Data)
	case models.EventClearChatScreen:
		m.Presence.ClearActiveChat(c.GetUserID())
	case models.EventMessagePage:
		err = m.handleMessagePage(ctx, c, env.Data)
	case models.EventNewMessage:
		err = m.handleNewMessage(ctx, c, env.Data)
	case models.EventSidebar:
		err = m.handleSidebar(ctx, c, env.Data)
	case models.EventSeen:
		err = m.handleSeen(ctx, c, env.Data)
	case models.EventTyping:
		err = m.handleTyping(ctx, c, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", models.ErrValidation, env.Event)
	}
	if err == nil {
		return
	}

	if errors.Is(err, models.ErrValidation) {
		m.log.Debug("hub - event - ignored",
			slog.String("event", env.Event),
			slog.String("user_id", c.GetUserID()),
			slog.Any("reason", err),
		)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	m.log.Error("hub - event - failed",
		slog.String("event", env.Event),
		slog.String("user_id", c.GetUserID()),
		slog.Any("error", err),
	)
	m.emitError(c, env.Event, err)
}

func (m *ManagerService) emitError(c Client, event string, err error) {
	message := "failed to handle " + event
	if errors.Is(err, models.ErrStorageUnavailable) {
		message = "storage unavailable, try again later"
	}
	c.Send(models.OutboundEvent{Event: models.EventError, Data: models.ErrorPayload{Message: message}})
}

func (m *ManagerService) handleChatScreen(c Client, data json.RawMessage) error {
	target, err := decodeUserID(data)
	if err != nil {
		return err
	}
	m.Presence.SetActiveChat(c.GetUserID(), target)
	c.Send(models.OutboundEvent{Event: models.EventSeen, Data: target})
	return nil
}

func (m *ManagerService) handleMessagePage(ctx context.Context, c Client, data json.RawMessage) error {
	self := c.GetUserID()
	target, err := decodeUserID(data)
	if err != nil {
		return err
	}
	if target == self {
		return fmt.Errorf("%w: cannot open a chat with yourself", models.ErrValidation)
	}

	header := models.MessageUser{ID: target}
	user, err := m.Storage.GetUserByID(ctx, target)
	switch {
	case err == nil:
		header.Name = user.Name
		header.Mobile = user.Mobile
		header.ProfilePic = user.ProfilePic
		header.LastSeen = user.LastSeen
		header.Online = m.Presence.IsOnline(target)
	case errors.Is(err, models.ErrNotFound):
	default:
		return err
	}

	conv, err := m.findOrCreateConversation(ctx, self, target)
	if err != nil {
		return err
	}
	msgs, err := m.Storage.GetConversationMessages(ctx, conv.ID)
	if err != nil {
		return err
	}

	c.Send(models.OutboundEvent{Event: models.EventMessageUser, Data: header})
	c.Send(models.OutboundEvent{Event: models.EventMessage, Data: orEmpty(msgs)})
	return nil
}

func (m *ManagerService) handleNewMessage(ctx context.Context, c Client, data json.RawMessage) error {
	self := c.GetUserID()

	var p models.NewMessagePayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if err := m.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if p.Sender != self || p.MsgByUserID != self {
		return fmt.Errorf("%w: sender does not match connection", models.ErrValidation)
	}

	msg := &models.Message{
		Text:        p.Text,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		MsgByUserID: self,
		Status:      models.StatusSent,
	}
	if msg.IsEmpty() {
		return fmt.Errorf("%w: empty message", models.ErrValidation)
	}
	if m.Presence.IsOnline(p.Receiver) {
		msg.Status = models.StatusDelivered
	}

	conv, err := m.findOrCreateConversation(ctx, p.Sender, p.Receiver)
	if err != nil {
		return err
	}

	unlock := m.threads.lock(conv.ID)
	defer unlock()
	if _, err := m.Storage.AppendMessage(ctx, conv.ID, msg); err != nil {
		return err
	}

	return m.publishThread(ctx, conv.ID, p.Sender, p.Receiver)
}

func (m *ManagerService) handleSidebar(ctx context.Context, c Client, data json.RawMessage) error {
	self := c.GetUserID()
	if len(data) > 0 && string(data) != "null" {
		requested, err := decodeUserID(data)
		if err != nil {
			return err
		}
		if requested != self {
			return fmt.Errorf("%w: sidebar requested for another user", models.ErrValidation)
		}
	}

	summaries, err := BuildSidebar(ctx, m.Storage, self)
	if err != nil {
		return err
	}
	c.Send(models.OutboundEvent{Event: models.EventConversation, Data: summaries})
	return nil
}

// handleSeen marks the peer's messages as seen, but only while the chat with
// that peer is open on this side.
func (m *ManagerService) handleSeen(ctx context.Context, c Client, data json.RawMessage) error {
	self := c.GetUserID()
	peer, err := decodeUserID(data)
	if err != nil {
		return err
	}
	if !m.Presence.IsViewing(self, peer) {
		return nil
	}

	conv, err := m.Storage.FindConversationBetween(ctx, self, peer)
	if err != nil {
		return err
	}
	if conv == nil {
		return nil
	}

	unlock := m.threads.lock(conv.ID)
	defer unlock()
	if _, err := m.Storage.MarkMessagesSeen(ctx, conv.ID, peer); err != nil {
		return err
	}

	return m.publishThread(ctx, conv.ID, self, peer)
}

func (m *ManagerService) handleTyping(ctx context.Context, c Client, data json.RawMessage) error {
	self := c.GetUserID()

	var p models.TypingPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if err := m.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if p.Sender != "" && p.Sender != self {
		return fmt.Errorf("%w: sender does not match connection", models.ErrValidation)
	}

	m.Broadcaster.Publish(ctx, p.Receiver, models.OutboundEvent{
		Event: models.EventTyping,
		Data:  models.TypingNotice{Sender: self},
	})
	return nil
}

// publishThread sends the full message list and each side's sidebar to both
// participants. Callers hold the conversation's thread lock.
func (m *ManagerService) publishThread(ctx context.Context, conversationID, userA, userB string) error {
	msgs, err := m.Storage.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	sidebarA, err := BuildSidebar(ctx, m.Storage, userA)
	if err != nil {
		return err
	}
	sidebarB, err := BuildSidebar(ctx, m.Storage, userB)
	if err != nil {
		return err
	}

	thread := models.OutboundEvent{Event: models.EventMessage, Data: orEmpty(msgs)}
	m.Broadcaster.Publish(ctx, userA, thread)
	m.Broadcaster.Publish(ctx, userB, thread)
	m.Broadcaster.Publish(ctx, userA, models.OutboundEvent{Event: models.EventConversation, Data: sidebarA})
	m.Broadcaster.Publish(ctx, userB, models.OutboundEvent{Event: models.EventConversation, Data: sidebarB})
	return nil
}

func (m *ManagerService) findOrCreateConversation(ctx context.Context, sender, receiver string) (*models.Conversation, error) {
	conv, err := m.Storage.FindConversationBetween(ctx, sender, receiver)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}
	return m.Storage.CreateConversation(ctx, sender, receiver)
}

func decodeUserID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("%w: expected a user id string: %v", models.ErrValidation, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty user id", models.ErrValidation)
	}
	return id, nil
}

func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", models.ErrValidation)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func orEmpty(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
