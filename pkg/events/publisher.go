package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Lifecycle event types published to the audit stream.
const (
	TypeMemberVerified = "member_verified"
	TypeMemberFlagged  = "member_flagged"
	TypeMemberKicked   = "member_kicked"
	TypeMemberRevoked  = "member_revoked"
	TypeRallyTriggered = "rally_triggered"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	GuildID   string                 `json:"guild_id"`
	DiscordID string                 `json:"discord_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher is a best-effort audit stream. Publishing never influences the
// state transition that triggered it: failures are logged and dropped. With
// no brokers configured every call is a no-op.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return &Publisher{}
	}

	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (p *Publisher) Publish(ctx context.Context, eventType, guildID, discordID string, data map[string]interface{}) {
	if p.writer == nil {
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		GuildID:   guildID,
		DiscordID: discordID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal lifecycle event")
		return
	}

	message := kafka.Message{
		Key:   []byte(guildID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"event_type": eventType,
			"guild_id":   guildID,
		}).Warn("Failed to publish lifecycle event")
	}
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
