package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/bus"
)

const wsWriteWait = 10 * time.Second

// WSHandler upgrades authenticated clients onto their per-user broadcast
// group and relays device log messages as JSON text frames.
type WSHandler struct {
	Cfg *config.Config
	Bus bus.Bus

	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(cfg *config.Config, b bus.Bus) *WSHandler {
	return &WSHandler{
		Cfg: cfg,
		Bus: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards connect cross-origin; the token is the gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// inboundFrame is the only client frame we understand: heartbeat pings.
type inboundFrame struct {
	Type string `json:"type"`
}

// outboundFrame is the single outbound frame type.
type outboundFrame struct {
	Message string `json:"message"`
}

// Stream handles GET /ws/logs. Unauthenticated handshakes are rejected
// before the upgrade, so they never join a group. Authenticated connections
// join the caller's group and receive every message published to it (and
// only it) until disconnect.
func (h *WSHandler) Stream(c *gin.Context) {
	userId, err := h.authenticate(c)
	if err != nil {
		customLog.Warnf("WebSocket auth failed: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		customLog.Warnf("WebSocket upgrade failed for user %s: %v", userId, err)
		return
	}

	group := bus.UserGroup(userId)
	sub, err := h.Bus.Subscribe(c.Request.Context(), group)
	if err != nil {
		customLog.Warnf("WebSocket subscribe to %s failed: %v", group, err)
		conn.Close()
		return
	}
	customLog.Printf("WebSocket connected for user: %s", userId)

	done := make(chan struct{})
	go h.readPump(conn, userId, done)
	h.writePump(conn, sub, done)

	sub.Close()
	conn.Close()
	customLog.Printf("WebSocket disconnected for user: %s", userId)
}

// authenticate accepts the JWT from a token query parameter (browser
// WebSocket clients cannot set headers) or an Authorization header.
func (h *WSHandler) authenticate(c *gin.Context) (string, error) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return "", auth.ErrUnauthorized
	}
	return auth.ValidateJWT(token, h.Cfg.JWTSecret)
}

// readPump consumes client frames until the connection drops. Heartbeats
// are logged for liveness; malformed JSON is silently discarded.
func (h *WSHandler) readPump(conn *websocket.Conn, userId string, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			customLog.Warnf("Received invalid JSON from user: %s", userId)
			continue
		}
		if frame.Type == "heartbeat" {
			customLog.Debugf("Heartbeat received from user: %s", userId)
		}
	}
}

// writePump relays broadcast messages to the socket until the subscription
// or the connection closes.
func (h *WSHandler) writePump(conn *websocket.Conn, sub *bus.Subscription, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(outboundFrame{Message: msg.Prefix + ": " + msg.Message}); err != nil {
				return
			}
		}
	}
}
