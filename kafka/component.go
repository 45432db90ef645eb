package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component runs the registered consumers and owns the producer used for
// job events. Wire it fully before Start.
type Component struct {
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	producer  ProducerCloser
	consumers []ConsumerRunner
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	// crashed holds topics whose consume loop ended with an error.
	crashed map[string]error
}

var _ component.Component = (*Component)(nil)

// NewComponent returns an unstarted component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// SetProducer hands over the producer; Stop closes it.
func (c *Component) SetProducer(p ProducerCloser) {
	c.mu.Lock()
	c.producer = p
	c.mu.Unlock()
}

// AddConsumer registers a consume loop started by Start.
func (c *Component) AddConsumer(cr ConsumerRunner) {
	c.mu.Lock()
	c.consumers = append(c.consumers, cr)
	c.mu.Unlock()
}

func (c *Component) Name() string { return "kafka" }

// Start launches one goroutine per consumer. Starting twice is a no-op.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}
	// Consume loops outlive the startup context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.crashed = make(map[string]error)

	for _, cr := range c.consumers {
		c.wg.Add(1)
		go c.run(runCtx, cr)
	}
	c.log.Info("Kafka started", logger.Fields("consumers", len(c.consumers), "producer", c.producer != nil))
	return nil
}

func (c *Component) run(ctx context.Context, cr ConsumerRunner) {
	defer c.wg.Done()
	err := cr.Consume(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.log.Error("Consumer stopped", logger.Fields("topic", cr.Topic(), logger.FieldError, err.Error()))
	c.mu.Lock()
	c.crashed[cr.Topic()] = err
	c.mu.Unlock()
}

// Stop ends the consume loops, then closes consumers and the producer.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, cr := range c.consumers {
		if err := cr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", cr.Topic(), err))
		}
	}
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
	}
	c.log.Info("Kafka stopped")
	return errors.Join(errs...)
}

// Health is unhealthy before Start or when the first broker cannot be
// dialled, and degraded while any consumer loop is down.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}

	c.mu.Lock()
	running := c.cancel != nil
	var down []string
	for topic := range c.crashed {
		down = append(down, topic)
	}
	c.mu.Unlock()

	if !running {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
		return h
	}
	if err := c.ping(ctx); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
		return h
	}
	if len(down) > 0 {
		h.Status, h.Message = component.StatusDegraded, fmt.Sprintf("consumers down: %v", down)
	}
	return h
}

func (c *Component) ping(ctx context.Context) error {
	if len(c.cfg.Brokers) == 0 {
		return errors.New("no brokers configured")
	}
	dialer, err := CreateDialer(&c.cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("broker unreachable: %w", err)
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}
