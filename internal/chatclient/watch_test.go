package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelchat-backend/internal/models"
)

func TestWatch_DeliversHistoryUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status_update","payload":{}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteJSON(models.WSMessage{Type: models.WSHistoryUpdated, Payload: models.HistoryUpdate{UserID: "u1", State: "completed"}})
		// Hold the socket open until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := make(chan models.HistoryUpdate, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), func(u models.HistoryUpdate) { updates <- u })
	}()

	select {
	case u := <-updates:
		assert.Equal(t, "u1", u.UserID)
		assert.Equal(t, "completed", u.State)
	case <-ctx.Done():
		t.Fatal("no update received")
	}

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}
