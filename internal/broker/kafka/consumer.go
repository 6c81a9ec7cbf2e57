package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler обрабатывает одно сообщение. Ошибка останавливает цикл чтения, offset не коммитится.
type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	r      messageReader
	topic  string
	group  string
	logger *zap.Logger
}

func NewConsumer(logger *zap.Logger, brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		MinBytes:          1,
		MaxBytes:          10e6,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return &Consumer{
		r:      kafka.NewReader(cfg),
		topic:  topic,
		group:  groupID,
		logger: logger,
	}
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r, logger: zap.NewNop()}
}

func (c *Consumer) Topic() string { return c.topic }
func (c *Consumer) Group() string { return c.group }

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume reads one message at a time and commits it only after handler succeeds.
// Cancellation of ctx returns ctx.Err().
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "fetch message")
		}
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			// Важно: commit делаем только при успехе, иначе потеряем сообщение.
			c.logger.Error("message handler failed, offset not committed",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			return err
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "commit message")
		}
	}
}
