package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"modelchat-backend/internal/models"
)

const (
	// writeWait bounds a single frame write to a peer.
	writeWait = 10 * time.Second
	// sendBuffer is how many updates may queue for one connection before it
	// is treated as stalled and dropped.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UserChannel is the pub/sub channel carrying a user's history updates.
func UserChannel(userID string) string {
	return "user_updates:" + userID
}

type tokenParser interface {
	ParseUserID(token string) (string, error)
}

// client is one open socket. Only writePump writes to conn; broadcast hands
// it frames through send and never touches the socket itself.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer)}
}

// writePump drains send until it is closed or a write fails.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans history updates out to a user's open websockets. With a redis
// client it relays the user's pub/sub channel, so any server instance can
// publish; without one it only delivers updates passed to NotifyHistory.
type Hub struct {
	mu          sync.Mutex
	connections map[string][]*client
	redisClient *redis.Client
	auth        tokenParser
	cancelFuncs map[string]context.CancelFunc
	logger      *slog.Logger
}

func NewHub(redisClient *redis.Client, auth tokenParser, logger *slog.Logger) *Hub {
	return &Hub{
		connections: make(map[string][]*client),
		redisClient: redisClient,
		auth:        auth,
		cancelFuncs: make(map[string]context.CancelFunc),
		logger:      logger,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket requests, so the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.auth.ParseUserID(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn)
	h.registerClient(userID, c)
	go c.writePump()

	// Reads only detect the disconnect.
	go func() {
		defer h.unregisterClient(userID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) registerClient(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], c)

	if h.redisClient != nil && len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	h.logger.Info("websocket connected", "user_id", userID, "connections", len(h.connections[userID]))
}

// unregisterClient removes c and closes its queue, which ends its writePump.
// Calling it for a client that is already gone is a no-op.
func (h *Hub) unregisterClient(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[userID]
	found := false
	for i, existing := range conns {
		if existing == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}
	close(c.send)

	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	h.logger.Info("websocket disconnected", "user_id", userID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID string) {
	pubsub := h.redisClient.Subscribe(ctx, UserChannel(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

// broadcast queues data for each of the user's sockets without blocking. A
// socket whose queue is full is closed; its reader then unregisters it.
func (h *Hub) broadcast(userID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.connections[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket subscriber stalled, dropping connection", "user_id", userID)
			c.conn.Close()
		}
	}
}

// NotifyHistory delivers an update to this instance's connections directly.
func (h *Hub) NotifyHistory(ctx context.Context, update models.HistoryUpdate) {
	data, err := encodeUpdate(update)
	if err != nil {
		return
	}
	h.broadcast(update.UserID, data)
}

// ConnectionCount returns the number of open sockets for userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections[userID])
}

// Close drops every connection and subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.connections {
		for _, c := range conns {
			close(c.send)
			c.conn.Close()
		}
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
		}
	}
	h.connections = make(map[string][]*client)
	h.cancelFuncs = make(map[string]context.CancelFunc)
}

func encodeUpdate(update models.HistoryUpdate) ([]byte, error) {
	return json.Marshal(models.WSMessage{Type: models.WSHistoryUpdated, Payload: update})
}
