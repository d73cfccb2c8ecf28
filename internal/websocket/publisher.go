package websocket

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"modelchat-backend/internal/models"
)

// RedisNotifier publishes history updates on the user's redis channel, where
// every server instance's Hub picks them up.
type RedisNotifier struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, logger *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger}
}

// NotifyHistory is best effort; a lost update only delays the client's refresh.
func (n *RedisNotifier) NotifyHistory(ctx context.Context, update models.HistoryUpdate) {
	data, err := encodeUpdate(update)
	if err != nil {
		n.logger.Error("failed to encode history update", "error", err)
		return
	}
	if err := n.client.Publish(ctx, UserChannel(update.UserID), data).Err(); err != nil {
		n.logger.Warn("failed to publish history update", "user_id", update.UserID, "error", err)
	}
}
