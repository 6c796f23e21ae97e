// api/handlers/ws_handler_integration_test.go
package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-ai/vigil-backend/internal/bus"
)

// wsURL rewrites an httptest server URL into its WebSocket endpoint.
func wsURL(serverURL, query string) string {
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/logs"
	if query != "" {
		u += "?" + query
	}
	return u
}

// dialWS connects and waits briefly so the server-side subscription is
// registered before the test publishes.
func dialWS(t *testing.T, rawURL string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, res, err := websocket.DefaultDialer.Dial(rawURL, header)
	if err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		t.Fatalf("WebSocket dial failed (status %d): %v", status, err)
	}
	time.Sleep(200 * time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var frame map[string]string
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read WebSocket frame: %v", err)
	}
	return frame
}

// TestWebSocketRejectsUnauthenticated verifies the handshake fails before any
// group membership exists.
func TestWebSocketRejectsUnauthenticated(t *testing.T) {
	server, _, _, cleanup := setupTestServer(t, nil)
	defer cleanup()

	assert := assert.New(t)

	_, res, err := websocket.DefaultDialer.Dial(wsURL(server.URL, ""), nil)
	assert.Error(err, "Handshake must fail without a token")
	if assert.NotNil(res) {
		assert.Equal(http.StatusUnauthorized, res.StatusCode)
	}

	_, res, err = websocket.DefaultDialer.Dial(wsURL(server.URL, "token=not-a-real-token"), nil)
	assert.Error(err, "Handshake must fail with a bogus token")
	if assert.NotNil(res) {
		assert.Equal(http.StatusUnauthorized, res.StatusCode)
	}
}

// TestWebSocketStreamsOwnGroup covers the happy path: connect with a token,
// receive messages published to the caller's group, formatted as
// "<prefix>: <text>".
func TestWebSocketStreamsOwnGroup(t *testing.T) {
	server, _, logBus, cleanup := setupTestServer(t, nil)
	defer cleanup()

	assert := assert.New(t)
	login := registerUser(t, server.URL, "ws@integration.com", "StrongPassword123!")

	conn := dialWS(t, wsURL(server.URL, "token="+login.Token), nil)
	defer conn.Close()

	group := bus.UserGroup(login.User.UserId)
	err := logBus.Publish(context.Background(), group, bus.LogMessage{Prefix: "pfx42", Message: "motion detected"})
	assert.NoError(err)

	frame := readFrame(t, conn, 2*time.Second)
	assert.Equal("pfx42: motion detected", frame["message"])
}

// TestWebSocketBearerHeaderAuth verifies the Authorization header works as an
// alternative to the token query parameter.
func TestWebSocketBearerHeaderAuth(t *testing.T) {
	server, _, logBus, cleanup := setupTestServer(t, nil)
	defer cleanup()

	assert := assert.New(t)
	login := registerUser(t, server.URL, "ws-header@integration.com", "StrongPassword123!")

	header := http.Header{"Authorization": []string{"Bearer " + login.Token}}
	conn := dialWS(t, wsURL(server.URL, ""), header)
	defer conn.Close()

	group := bus.UserGroup(login.User.UserId)
	assert.NoError(logBus.Publish(context.Background(), group, bus.LogMessage{Prefix: "cam", Message: "ok"}))

	frame := readFrame(t, conn, 2*time.Second)
	assert.Equal("cam: ok", frame["message"])
}

// TestWebSocketIgnoresClientNoise verifies heartbeats and malformed frames
// leave the connection healthy.
func TestWebSocketIgnoresClientNoise(t *testing.T) {
	server, _, logBus, cleanup := setupTestServer(t, nil)
	defer cleanup()

	assert := assert.New(t)
	login := registerUser(t, server.URL, "ws-noise@integration.com", "StrongPassword123!")

	conn := dialWS(t, wsURL(server.URL, "token="+login.Token), nil)
	defer conn.Close()

	assert.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	assert.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`this is not json`)))
	time.Sleep(100 * time.Millisecond)

	// Still connected and still receiving
	group := bus.UserGroup(login.User.UserId)
	assert.NoError(logBus.Publish(context.Background(), group, bus.LogMessage{Prefix: "cam", Message: "still here"}))

	frame := readFrame(t, conn, 2*time.Second)
	assert.Equal("cam: still here", frame["message"])
}

// TestWebSocketGroupIsolation verifies a client never sees another user's
// messages.
func TestWebSocketGroupIsolation(t *testing.T) {
	server, _, logBus, cleanup := setupTestServer(t, nil)
	defer cleanup()

	assert := assert.New(t)
	alice := registerUser(t, server.URL, "ws-alice@integration.com", "StrongPassword123!")
	bob := registerUser(t, server.URL, "ws-bob@integration.com", "StrongPassword123!")

	conn := dialWS(t, wsURL(server.URL, "token="+bob.Token), nil)
	defer conn.Close()

	// A message for alice must never reach bob's socket
	group := bus.UserGroup(alice.User.UserId)
	assert.NoError(logBus.Publish(context.Background(), group, bus.LogMessage{Prefix: "cam", Message: "secret"}))

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var frame map[string]string
	err := conn.ReadJSON(&frame)
	assert.Error(err, "Read should time out with no cross-group delivery")
}
