package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 200 * time.Millisecond
)

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	// RetryAttempts and RetryBackoff bound the in-place retries of one message.
	RetryAttempts int
	RetryBackoff  time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		group:         g,
		handler:       handler,
		logger:        logger,
		RetryAttempts: DefaultRetryAttempts,
		RetryBackoff:  DefaultRetryBackoff,
	}, nil
}

// Run consumes topics until ctx is done, rejoining the group after rebalances
// and after a claim gave up on a message.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, c.groupHandler()); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryBackoff):
		}
	}
}

func (c *Consumer) groupHandler() consumerGroupHandler {
	return consumerGroupHandler{handler: c.handler, logger: c.logger, attempts: c.RetryAttempts, backoff: c.RetryBackoff}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler  MessageHandler
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim retries a failing message in place. When it still fails the claim
// returns without marking it, which ends the session; Run rejoins and the group
// resumes from the last committed offset, so the message is delivered again.
func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handle(sess.Context(), message); err != nil {
			h.logger.Error("kafka message failed, leaving it uncommitted", "topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
			return fmt.Errorf("kafka: %s/%d@%d: %w", message.Topic, message.Partition, message.Offset, err)
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

func (h consumerGroupHandler) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	attempts := max(h.attempts, 1)
	wait := h.backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = h.handler.Handle(ctx, message); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		h.logger.Warn("kafka message failed, retrying", "topic", message.Topic, "offset", message.Offset, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
