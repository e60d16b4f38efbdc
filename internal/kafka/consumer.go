package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Message is a consumed record.
type Message struct {
	Topic  string
	Key    []byte
	Value  []byte
	Offset int64
}

// ErrSkip tells the consumer to commit a message the handler cannot use,
// such as one that does not decode. Any other error leaves the offset
// uncommitted so the message is redelivered after a restart.
var ErrSkip = errors.New("skip message")

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consumer reads a topic as part of a consumer group.
type Consumer interface {
	Subscribe(ctx context.Context, handler HandlerFunc) error
	Close() error
}

type consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) Consumer {
	return &consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			MaxWait:     time.Second,
			StartOffset: kafka.LastOffset,
		}),
		logger: logger.With(slog.String("topic", topic), slog.String("group", groupID)),
	}
}

// Subscribe blocks until ctx is cancelled, handing each message to handler
// and committing it once handled.
func (c *consumer) Subscribe(ctx context.Context, handler HandlerFunc) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		carrier := HeaderCarrier(m.Headers)
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, &carrier)

		err = handler(msgCtx, Message{Topic: m.Topic, Key: m.Key, Value: m.Value, Offset: m.Offset})
		switch {
		case errors.Is(err, ErrSkip):
			c.logger.Warn("skipping message", slog.Int64("offset", m.Offset), slog.String("reason", err.Error()))
		case err != nil:
			c.logger.Error("handler failed, offset not committed", slog.Int64("offset", m.Offset), slog.String("error", err.Error()))
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", slog.Int64("offset", m.Offset), slog.String("error", err.Error()))
		}
	}
}

func (c *consumer) Close() error {
	return c.reader.Close()
}
