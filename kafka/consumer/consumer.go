// Package consumer reads Kafka topics in a consumer group with kafka-go.
// Offsets are committed only after the handler returns, so a restart
// replays unfinished messages and handlers must be idempotent.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// MessageHandler processes one message.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// reader is the part of *kafkago.Reader the consume loop uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer runs a handler over one topic.
type Consumer struct {
	reader reader
	topic  string
	log    *logger.Logger

	// handlerRetry bounds attempts per message; after the last failure the
	// message is committed and logged so one bad grant cannot stall the topic.
	handlerRetry resilience.RetryConfig
	maxReadWait  time.Duration
}

// NewConsumer joins cfg.GroupID on topic.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.New("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer").WithFields(logger.Fields("topic", topic, "group_id", cfg.GroupID))
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MaxBytes:          1 << 20,
		SessionTimeout:    kafka.ParseDuration(cfg.Consumer.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.Consumer.HeartbeatInterval),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Warn("reader: " + fmt.Sprintf(msg, args...))
		}),
	})
	return newConsumer(r, topic, clog), nil
}

func newConsumer(r reader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:       r,
		topic:        topic,
		log:          log,
		handlerRetry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 500 * time.Millisecond},
		maxReadWait:  30 * time.Second,
	}
}

// Consume runs until ctx is done.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Consuming")
	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if err := c.wait(ctx, failures, err); err != nil {
				return err
			}
			continue
		}
		failures = 0

		err = resilience.RetryFunc(ctx, c.handlerRetry, func() error { return handler(ctx, msg) })
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Message dropped after retries", logger.Fields(
				"partition", msg.Partition, "offset", msg.Offset, logger.FieldError, err.Error()))
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("Commit failed", logger.Fields("offset", msg.Offset, logger.FieldError, err.Error()))
		}
	}
}

// wait sleeps failures seconds, capped, after a read error.
func (c *Consumer) wait(ctx context.Context, failures int, err error) error {
	d := min(time.Duration(failures)*time.Second, c.maxReadWait)
	if failures <= 3 {
		c.log.Warn("Kafka read failed", logger.Fields("failures", failures, "backoff", d.String(), logger.FieldError, err.Error()))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string { return c.topic }

// Close leaves the group.
func (c *Consumer) Close() error {
	c.log.Info("Closing consumer")
	return c.reader.Close()
}

// bound pairs a Consumer with its handler so kafka.Component can run it.
type bound struct {
	*Consumer
	handler MessageHandler
}

func (b bound) Consume(ctx context.Context) error { return b.Consumer.Consume(ctx, b.handler) }

// AsRunner binds h to c for kafka.Component.AddConsumer.
func AsRunner(c *Consumer, h MessageHandler) kafka.ConsumerRunner {
	return bound{Consumer: c, handler: h}
}
