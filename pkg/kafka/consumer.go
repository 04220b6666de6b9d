// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON. The consumer
// runs a long-lived fetch loop that hands each message to a MessageHandler,
// and Subscription reads individual messages for callers that want only one.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Start offsets for readers that have no committed position.
const (
	FirstOffset = kafka.FirstOffset
	LastOffset  = kafka.LastOffset
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ReaderOptions selects the consumer group and start position of a reader.
type ReaderOptions struct {
	GroupID     string
	StartOffset int64
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, opts ReaderOptions, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  newReader(cfg, topic, opts),
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", opts.GroupID),
		handler: handler,
	}
}

func newReader(cfg config.KafkaConfig, topic string, opts ReaderOptions) *kafka.Reader {
	start := opts.StartOffset
	if start == 0 {
		start = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     opts.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: start,
	})
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Subscription is a short-lived reader that never commits offsets.
type Subscription struct {
	reader *kafka.Reader
}

// Subscribe opens a Subscription on topic. With a throwaway GroupID and
// FirstOffset it sees every retained message on every partition.
func Subscribe(cfg config.KafkaConfig, topic string, opts ReaderOptions) *Subscription {
	return &Subscription{reader: newReader(cfg, topic, opts)}
}

// Next blocks until a message is available or ctx ends and returns its value.
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching message: %w", err)
	}
	return msg.Value, nil
}

// Close tears down the subscription.
func (s *Subscription) Close() error {
	return s.reader.Close()
}

// Ping dials each broker in turn and asks it for the cluster controller.
// It succeeds as soon as one broker answers.
func Ping(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Controller()
		conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
