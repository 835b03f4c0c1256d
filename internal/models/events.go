package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Event names used on the socket in both directions.
const (
	EventChatScreen      = "chat-screen"
	EventClearChatScreen = "clear-chat-screen"
	EventMessagePage     = "message-page"
	EventNewMessage      = "new message"
	EventSidebar         = "sidebar"
	EventSeen            = "seen"
	EventTyping          = "typing"

	EventMessage      = "message"
	EventMessageUser  = "message-user"
	EventConversation = "conversation"
	EventOnlineUser   = "onlineUser"
	EventAuthError    = "auth-error"
	EventError        = "error"
)

// Envelope is an inbound frame as read off the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is a frame queued for delivery to a connection.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewMessagePayload is the body of a "new message" event.
type NewMessagePayload struct {
	Sender      string `json:"sender" validate:"required"`
	Receiver    string `json:"receiver" validate:"required,nefield=Sender"`
	Text        string `json:"text"`
	ImageURL    string `json:"imageUrl" validate:"max=2048"`
	VideoURL    string `json:"videoUrl" validate:"max=2048"`
	MsgByUserID string `json:"msgByUserId" validate:"required"`
}

// TypingPayload is the body of an inbound "typing" event.
type TypingPayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver" validate:"required"`
}

// TypingNotice is relayed to the receiver of a typing event.
type TypingNotice struct {
	Sender string `json:"sender"`
}

// MessageUser is the "message-user" header shown above an open chat.
type MessageUser struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	Mobile     string     `json:"mobile"`
	ProfilePic string     `json:"profile_pic"`
	Online     bool       `json:"online"`
	LastSeen   *time.Time `json:"lastSeen"`
}

// ConversationSummary is one sidebar row.
type ConversationSummary struct {
	ID        string      `json:"_id"`
	Sender    UserSummary `json:"sender"`
	Receiver  UserSummary `json:"receiver"`
	OtherUser UserSummary `json:"otherUser"`
	UnseenMsg int         `json:"unseenMsg"`
	LastMsg   *Message    `json:"lastMsg"`
}

// ErrorPayload carries "error" and "auth-error" messages.
type ErrorPayload struct {
	Message string `json:"message"`
}
