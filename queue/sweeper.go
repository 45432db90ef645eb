package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Sweeper periodically releases stale claims. It is a component.Component.
type Sweeper struct {
	cfg   Config
	store *Store
	log   *logger.Logger
	cron  *cron.Cron

	lastErr atomic.Value
}

var _ component.Component = (*Sweeper)(nil)

// NewSweeper creates a Sweeper.
func NewSweeper(cfg Config, store *Store, log *logger.Logger) *Sweeper {
	cfg.ApplyDefaults()
	return &Sweeper{cfg: cfg, store: store, log: log.WithComponent("queue-sweeper")}
}

func (s *Sweeper) Name() string { return "queue-sweeper" }

func (s *Sweeper) Start(ctx context.Context) error {
	cl := cronLogger{s.log}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	s.cron.Start()
	s.log.Info("Queue sweeper started", logger.Fields("schedule", s.cfg.SweepSchedule))
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Sweeper) Health(ctx context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if msg, _ := s.lastErr.Load().(string); msg != "" {
		h.Status, h.Message = component.StatusDegraded, msg
	}
	return h
}

// Sweep runs one release pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.store.ReleaseStale(ctx, s.cfg.StaleAfter)
	if err != nil {
		s.lastErr.Store(err.Error())
		s.log.Error("Queue sweep failed", logger.ErrorFields("sweep", err))
		return
	}
	s.lastErr.Store("")
	if n > 0 {
		s.log.Info("Released stale queue claims", logger.Fields("released", n))
	}
}

// cronLogger routes cron's scheduler and panic logs into the service logger.
// Scheduler chatter goes to debug.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, kv ...any) {
	c.log.Debug(msg, logger.Fields(kv...))
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	fields := logger.Fields(kv...)
	fields[logger.FieldError] = err.Error()
	c.log.Error(msg, fields)
}
