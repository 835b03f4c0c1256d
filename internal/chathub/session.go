package chathub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chatsync/backend/internal/config"
	"chatsync/backend/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// SessionState is the lifecycle stage of a connection.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connect authenticates an upgraded connection. On success the connection is
// registered and its pumps started; on failure the peer gets an auth-error
// frame and the connection is closed.
func (m *ManagerService) Connect(ctx context.Context, conn *websocket.Conn, credential string) (*WebSocketClient, error) {
	client := NewWebSocketClient(m, conn)
	client.setState(StateAuthenticating)

	user, err := m.Resolver.Resolve(ctx, credential)
	if err != nil {
		m.log.Warn("session - authenticate - rejected",
			slog.String("conn_id", client.ConnID),
			slog.Any("error", err),
		)
		client.reject(authErrorMessage(err))
		return nil, err
	}

	client.UserID = user.ID
	client.setState(StateActive)
	m.log.Info("session - authenticate - accepted",
		slog.String("conn_id", client.ConnID),
		slog.String("user_id", user.ID),
	)

	m.Register(client)
	client.Run()
	return client, nil
}

func authErrorMessage(err error) string {
	if errors.Is(err, models.ErrAuthFailure) {
		return err.Error()
	}
	return "authentication unavailable"
}

// reject writes the auth-error frame straight to the socket, bypassing the
// pumps, and closes the connection.
func (c *WebSocketClient) reject(message string) {
	defer c.Close()
	defer c.Conn.Close()

	payload, err := json.Marshal(models.OutboundEvent{
		Event: models.EventAuthError,
		Data:  models.ErrorPayload{Message: message},
	})
	if err != nil {
		return
	}

	deadline := time.Now().Add(config.WriteWait)
	c.Conn.SetWriteDeadline(deadline)
	if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return
	}
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
		deadline,
	)
}
