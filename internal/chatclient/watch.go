package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"modelchat-backend/internal/models"
)

// Watch streams history updates from the server until ctx ends or the
// connection drops. onUpdate runs on the reading goroutine.
func Watch(ctx context.Context, wsURL string, onUpdate func(models.HistoryUpdate)) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != models.WSHistoryUpdated {
			continue
		}
		var update models.HistoryUpdate
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			continue
		}
		onUpdate(update)
	}
}
