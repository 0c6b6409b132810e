package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/orderplacement/internal/order/domain"
	"github.com/dmehra2102/orderplacement/pkg/metrics"
	"github.com/dmehra2102/orderplacement/pkg/tracing"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

type EventHandler interface {
	Handle(ctx context.Context, e domain.Event) error
}

type Consumer struct {
	log     *slog.Logger
	reader  MessageReader
	handler EventHandler
	idem    Deduper
	tracer  trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader MessageReader, handler EventHandler, idem Deduper) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		handler: handler,
		idem:    idem,
		tracer:  otel.Tracer("order-consumer"),
	}
}

// Run processes messages until ctx is cancelled. Every fetched message is
// committed, including ones that fail to decode or handle, so a poison
// message cannot stall the partition.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		// Redelivery is tolerated; dropping the message is not.
		c.log.Warn("idempotency check failed, processing anyway", "key", key, "err", err)
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		metrics.RecordEventConsumed(tracing.HeaderValue(msg.Headers, "event_type"), "duplicate")
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int("messaging.partition", msg.Partition),
			attribute.Int64("messaging.offset", msg.Offset),
		))
	defer span.End()

	ev, err := domain.DecodeEvent(msg.Value)
	if err != nil {
		c.log.Error("unmarshal failed", "key", key, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		metrics.RecordEventConsumed(tracing.HeaderValue(msg.Headers, "event_type"), "invalid")
		return
	}

	if err := c.handler.Handle(msgCtx, ev); err != nil {
		c.log.Error("event handling failed", "type", ev.EventType(), "key", key, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handle")
		metrics.RecordEventConsumed(ev.EventType(), "failed")
		return
	}
	metrics.RecordEventConsumed(ev.EventType(), "ok")
}
