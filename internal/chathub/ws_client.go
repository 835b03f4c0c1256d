package chathub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chatsync/backend/internal/config"
	"chatsync/backend/internal/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ConnID string
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService

	send      chan models.OutboundEvent
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn) *WebSocketClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketClient{
		ConnID: uuid.New().String(),
		Conn:   conn,
		Hub:    hub,
		send:   make(chan models.OutboundEvent, config.SendBufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *WebSocketClient) GetUserID() string { return c.UserID }

func (c *WebSocketClient) State() SessionState { return SessionState(c.state.Load()) }

func (c *WebSocketClient) setState(s SessionState) { c.state.Store(int32(s)) }

func (c *WebSocketClient) Send(ev models.OutboundEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops both pumps. In-flight store calls of this connection are cancelled.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		c.cancel()
		close(c.done)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Warn("client - read - unexpected close",
					slog.String("user_id", c.UserID),
					slog.Any("error", err),
				)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.Hub.log.Debug("client - read - malformed frame",
				slog.String("user_id", c.UserID),
				slog.Any("error", err),
			)
			continue
		}

		c.Hub.HandleEvent(c.ctx, c, env)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			payload, err := json.Marshal(ev)
			if err != nil {
				c.Hub.log.Error("client - write - encode failed",
					slog.String("user_id", c.UserID),
					slog.String("event", ev.Event),
					slog.Any("error", err),
				)
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
