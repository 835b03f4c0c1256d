package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"chatsync/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// newUpgrader falls back to gorilla's same-origin check when no origins are configured.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		u.CheckOrigin = originChecker(allowedOrigins)
	}
	return u
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests from one of the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// ServeWebSocket upgrades first and authenticates afterwards, so a rejected
// client still receives an auth-error frame.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	credential := auth.TokenFromRequest(c.Request)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws - upgrade - failed",
			slog.String("origin", c.Request.Header.Get("Origin")),
			slog.Any("error", err),
		)
		return
	}

	h.Hub.Connect(c.Request.Context(), conn, credential)
}
