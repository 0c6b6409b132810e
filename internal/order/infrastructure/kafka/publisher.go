package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/pkg/tracing"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher sends events straight to the broker. Events keyed by order id
// land on the same partition, which keeps per-order ordering.
type Publisher struct {
	log   *slog.Logger
	w     MessageWriter
	topic string
}

func NewPublisher(log *slog.Logger, w MessageWriter, topic string) *Publisher {
	return &Publisher{log: log, w: w, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	payload, err := domain.MarshalEnvelope(e)
	if err != nil {
		return err
	}
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(e.EventType())},
		{Key: "content-type", Value: []byte("application/json")},
	}
	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(e.Key()),
		Value:   payload,
		Headers: tracing.InjectKafkaHeaders(ctx, headers),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.EventType(), err)
	}
	p.log.Info("event published", "type", e.EventType(), "key", e.Key())
	return nil
}
