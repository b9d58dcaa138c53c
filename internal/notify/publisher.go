// Package notify fans new-message events out to connected WebSocket clients
// through Redis pub/sub, so every server instance can reach every user.
package notify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/logging"
	"github.com/HammerMeetNail/circleboard/internal/models"
)

const channelPrefix = "notify:"

// Channel is the Redis channel carrying one user's notifications.
func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

func userFromChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, channelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Event is the frame pushed to a client's socket.
type Event struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      uuid.UUID `json:"messageId"`
	SenderID       uuid.UUID `json:"senderId"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// RedisPublisher publishes one event per recipient. Failures are logged and
// otherwise ignored.
type RedisPublisher struct {
	publisher Publisher
	logger    *logging.Logger
}

func NewRedisPublisher(publisher Publisher, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default
	}
	return &RedisPublisher{publisher: publisher, logger: logger}
}

func (p *RedisPublisher) NotifyMessage(ctx context.Context, recipients []uuid.UUID, msg *models.Message) {
	event := Event{
		Type:           "notify",
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	}
	if msg.SenderID != nil {
		event.SenderID = *msg.SenderID
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Encoding notification failed")
		return
	}

	for _, userID := range recipients {
		if err := p.publisher.Publish(ctx, Channel(userID), string(payload)); err != nil {
			p.logger.WithError(err).Warn("Publishing notification failed", map[string]interface{}{
				"user_id":    userID.String(),
				"message_id": msg.ID.String(),
			})
		}
	}
}
