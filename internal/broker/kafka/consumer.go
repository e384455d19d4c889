package kafka

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const defaultHandleTimeout = 30 * time.Second

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one notification record.
type Handler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	r             messageReader
	handleTimeout time.Duration

	handled atomic.Int64
	failed  atomic.Int64
}

// NewConsumer joins groupID on topic. Without a group it reads the topic
// directly, which is only useful in tests and one-off tools.
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	cfg := kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		StartOffset:       kafka.FirstOffset,
	}
	if groupID != "" {
		cfg.GroupTopics = []string{topic}
	} else {
		cfg.Topic = topic
	}
	return newConsumerWithReader(kafka.NewReader(cfg))
}

func newConsumerWithReader(r messageReader) *Consumer {
	return &Consumer{r: r, handleTimeout: defaultHandleTimeout}
}

// WithHandleTimeout bounds a single handler call. Non-positive values are ignored.
func (c *Consumer) WithHandleTimeout(d time.Duration) *Consumer {
	if d > 0 {
		c.handleTimeout = d
	}
	return c
}

// Handled and Failed count handler outcomes since start.
func (c *Consumer) Handled() int64 { return c.handled.Load() }
func (c *Consumer) Failed() int64  { return c.failed.Load() }

func (c *Consumer) Close() error {
	return c.r.Close()
}

// Consume runs handler for every record and commits only after it succeeds,
// so a failed record is redelivered after a restart or rebalance.
// It returns nil once ctx is canceled.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error {
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "fetch message")
		}

		if err := c.handle(ctx, Handler(handler), msg); err != nil {
			c.failed.Add(1)
			slog.Error("notification handler failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err.Error(),
			)
			return err
		}
		c.handled.Add(1)

		if err := c.r.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, "commit message")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, msg kafka.Message) error {
	hctx, cancel := context.WithTimeout(ctx, c.handleTimeout)
	defer cancel()
	return h(hctx, msg.Key, msg.Value)
}
