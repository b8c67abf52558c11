package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/aq2208/storefront-api/internal/logging"
)

// HandlerFunc processes a decoded event.
type HandlerFunc[T any] func(ctx context.Context, ev T) error

// Consumer consumes topics with a single typed handler.
type Consumer[T any] struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc[T]
	Logger *slog.Logger
}

func NewConsumer[T any](group sarama.ConsumerGroup, topics []string, h HandlerFunc[T]) *Consumer[T] {
	return &Consumer[T]{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka-consumer"),
	}
}

// Start blocks until ctx is cancelled or the group is closed.
func (c *Consumer[T]) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler[T]{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler[T any] struct {
	handle HandlerFunc[T]
	logger *slog.Logger
}

func (h *cgHandler[T]) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler[T]) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler[T]) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if h.process(sess.Context(), msg) {
			sess.MarkMessage(msg, "")
		}
	}
	return nil
}

// process reports whether the message should be marked consumed. Poison
// messages are marked; handler failures are left for redelivery.
func (h *cgHandler[T]) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var ev T
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.Warn("kafka decode error", "err", err, "topic", msg.Topic, "off", msg.Offset)
		return true
	}
	if err := h.handle(ctx, ev); err != nil {
		h.logger.Error("handler error", "err", err, "key", string(msg.Key), "off", msg.Offset)
		return false
	}
	return true
}
