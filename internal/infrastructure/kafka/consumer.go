package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/honeynil/auth-service/internal/infrastructure/mail"
	"github.com/honeynil/auth-service/internal/models"
	"github.com/segmentio/kafka-go"
)

// MailConsumer reads verification-code events from the mail topic and
// hands them to the SMTP sender. Decoupling the send from the request
// keeps ask-code latency independent of the relay.
type MailConsumer struct {
	reader *kafka.Reader
	sender mail.Sender
}

func NewMailConsumer(brokers []string, topic, groupID string, sender mail.Sender) *MailConsumer {
	return &MailConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		sender: sender,
	}
}

func (c *MailConsumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		var event models.MailEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal mail event", "error", err)
			continue
		}

		subject, body, ok := renderMessage(event)
		if !ok {
			slog.Error("unknown mail event type", "type", event.Type)
			continue
		}

		if err := c.sender.Send(event.Email, subject, body); err != nil {
			slog.Error("failed to deliver mail", "email", event.Email, "type", event.Type, "error", err)
			continue
		}

		slog.Info("verification mail delivered", "email", event.Email, "type", event.Type)
	}
}

func renderMessage(event models.MailEvent) (subject, body string, ok bool) {
	switch event.Type {
	case models.MailTypeRegister:
		return "Welcome to our service",
			fmt.Sprintf("Your registration code is %06d. It is valid for 3 minutes.", event.Code),
			true
	case models.MailTypeReset:
		return "Password reset",
			fmt.Sprintf("Your password reset code is %06d. It is valid for 3 minutes.", event.Code),
			true
	default:
		return "", "", false
	}
}

func (c *MailConsumer) Close() error {
	return c.reader.Close()
}
