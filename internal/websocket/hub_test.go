package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"modelchat-backend/internal/models"
)

type staticTokens map[string]string

func (s staticTokens) ParseUserID(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitForConnections(t *testing.T, h *Hub, userID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ConnectionCount(userID) == n }, 2*time.Second, 10*time.Millisecond)
}

func readUpdate(t *testing.T, conn *websocket.Conn) models.HistoryUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string               `json:"type"`
		Payload models.HistoryUpdate `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, models.WSHistoryUpdated, msg.Type)
	return msg.Payload
}

func TestHub_RejectsBadToken(t *testing.T) {
	hub := NewHub(nil, staticTokens{"good": "u1"}, testLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "bad")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_LocalDeliveryIsPerUser(t *testing.T) {
	hub := NewHub(nil, staticTokens{"t1": "u1", "t2": "u2"}, testLogger())
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	c1, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	defer c1.Close()
	c2, _, err := dial(t, srv, "t2")
	require.NoError(t, err)
	defer c2.Close()
	waitForConnections(t, hub, "u1", 1)
	waitForConnections(t, hub, "u2", 1)

	hub.NotifyHistory(context.Background(), models.HistoryUpdate{UserID: "u1", ModelTag: "gpt-4o", State: "completed"})
	got := readUpdate(t, c1)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "completed", got.State)

	c2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = c2.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub(nil, staticTokens{"t1": "u1"}, testLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	c1, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	waitForConnections(t, hub, "u1", 1)

	c1.Close()
	waitForConnections(t, hub, "u1", 0)
}

func TestHub_RedisRelay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer client.Close()

	hub := NewHub(client, staticTokens{"t1": "u1"}, testLogger())
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "t1")
	require.NoError(t, err)
	defer conn.Close()
	waitForConnections(t, hub, "u1", 1)

	// The subscription starts asynchronously; wait until redis sees it.
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, UserChannel("u1")).Result()
		return err == nil && n[UserChannel("u1")] == 1
	}, 5*time.Second, 20*time.Millisecond)

	notifier := NewRedisNotifier(client, testLogger())
	notifier.NotifyHistory(ctx, models.HistoryUpdate{UserID: "u1", ModelTag: "gemini-2.0-flash-exp", State: "user_persisted"})

	got := readUpdate(t, conn)
	assert.Equal(t, "gemini-2.0-flash-exp", got.ModelTag)
	assert.Equal(t, "user_persisted", got.State)
}

func TestHub_NonReadingClientDoesNotBlockNotify(t *testing.T) {
	hub := NewHub(nil, staticTokens{"ta": "a", "tb": "b"}, testLogger())
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	// a connects and never reads.
	stuck, _, err := dial(t, srv, "ta")
	require.NoError(t, err)
	defer stuck.Close()
	other, _, err := dial(t, srv, "tb")
	require.NoError(t, err)
	defer other.Close()
	waitForConnections(t, hub, "a", 1)
	waitForConnections(t, hub, "b", 1)

	big := strings.Repeat("x", 4096)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			hub.NotifyHistory(context.Background(), models.HistoryUpdate{UserID: "a", ModelTag: big, State: "completed"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyHistory blocked on a client that does not read")
	}

	hub.NotifyHistory(context.Background(), models.HistoryUpdate{UserID: "b", ModelTag: "gpt-4o", State: "completed"})
	got := readUpdate(t, other)
	assert.Equal(t, "b", got.UserID)
}

func TestHub_FullQueueDropsConnection(t *testing.T) {
	hub := NewHub(nil, staticTokens{}, testLogger())
	defer hub.Close()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer peer.Close()

	var serverConn *websocket.Conn
	select {
	case serverConn = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server side of the socket never appeared")
	}

	// No writePump drains this queue, so the second frame overflows it.
	c := &client{conn: serverConn, send: make(chan []byte, 1)}
	hub.registerClient("u1", c)
	hub.broadcast("u1", []byte(`{"n":1}`))
	hub.broadcast("u1", []byte(`{"n":2}`))

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = peer.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not idle")
	}
}
