// internal/service/publishing/infrastructure/delivery_kafka_adapter.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"dealwire/internal/pkg/mq"
	rulesdomain "dealwire/internal/service/rules/domain"
)

// KafkaDeliveryAdapter 把出站消息写进 Kafka，由独立的投递网关消费。
// 用于不直连外部 API 的部署形态（delivery_mode: kafka）。
type KafkaDeliveryAdapter struct {
	writer *kafka.Writer
}

func NewKafkaDeliveryAdapter(writer *kafka.Writer) *KafkaDeliveryAdapter {
	return &KafkaDeliveryAdapter{writer: writer}
}

type outboundMessage struct {
	MessageID string `json:"messageId"`
	ChannelID string `json:"channelId"`
	Platform  string `json:"platform"`
	ChatID    string `json:"chatId"`
	Text      string `json:"text"`
	SentAt    string `json:"sentAt"`
}

func (a *KafkaDeliveryAdapter) Send(ctx context.Context, channel *rulesdomain.Channel, _ string, message string) (string, error) {
	// 凭据不进消息总线，投递网关自己持有各频道的 token
	messageID := uuid.New().String()
	payload, err := json.Marshal(outboundMessage{
		MessageID: messageID,
		ChannelID: channel.ID,
		Platform:  channel.Platform,
		ChatID:    channel.ChatID,
		Text:      message,
		SentAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(channel.ID), payload); err != nil {
		return "", err
	}
	return messageID, nil
}
