// Package producer writes messages to Kafka with kafka-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("kafka producer closed")

// Producer is a kafka-go Writer with retries and scribe logging. The writer
// dials lazily on the first write, so a broker outage does not block startup.
type Producer struct {
	writer *kafkago.Writer
	retry  resilience.RetryConfig
	log    *logger.Logger
	closed atomic.Bool
}

func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	if !cfg.Enabled {
		return nil, errors.New("kafka is disabled")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, err
	}

	pc := cfg.Producer
	plog := log.WithComponent("kafka.producer")
	p := &Producer{
		log: plog,
		retry: resilience.RetryConfig{
			MaxAttempts:    pc.Retries,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     time.Second,
			OnRetry: func(attempt int, err error, wait time.Duration) {
				plog.Warn("Kafka write failed, retrying", logger.Fields(
					"attempt", attempt, "backoff_ms", wait.Milliseconds(), logger.FieldError, err.Error()))
			},
		},
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Transport:    transport,
			Balancer:     &kafkago.Hash{},
			BatchSize:    pc.BatchSize,
			BatchTimeout: kafka.ParseDuration(pc.BatchTimeout),
			RequiredAcks: kafkago.RequiredAcks(pc.RequiredAcks),
			Compression:  kafka.ResolveCompression(pc.Compression),
			WriteTimeout: kafka.ParseDuration(pc.WriteTimeout),
			ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
				plog.Error(fmt.Sprintf("writer: "+msg, args...))
			}),
		},
	}
	plog.Info("Kafka producer ready", logger.Fields("brokers", cfg.Brokers, "compression", pc.Compression))
	return p, nil
}

// WriteMessages sends msgs, retrying the whole batch on failure.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes pending batches. Later calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
