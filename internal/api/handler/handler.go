package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"chatsync/backend/internal/api/middleware"
	"chatsync/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Pinger reports whether backing services are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP entry points to the chat hub.
type Handler struct {
	Hub    *chathub.ManagerService
	Health Pinger

	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler builds the handler. allowedOrigins restricts which browser
// origins may open a websocket; see config.HubConfig.AllowedOrigins.
func NewHandler(hub *chathub.ManagerService, health Pinger, allowedOrigins []string, log *slog.Logger) *Handler {
	return &Handler{
		Hub:      hub,
		Health:   health,
		upgrader: newUpgrader(allowedOrigins),
		log:      log,
	}
}

// Router wires the routes onto a fresh gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(h.log))

	r.GET("/health", h.GetHealth)
	r.GET("/ws", h.ServeWebSocket)
	return r
}

func (h *Handler) GetHealth(c *gin.Context) {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health.Ping(ctx); err != nil {
			c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
