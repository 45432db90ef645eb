package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scribe/logger"
)

const (
	stopTimeout   = 10 * time.Second
	healthTimeout = 3 * time.Second
)

type slot struct {
	c       Component
	running bool
}

// Registry starts components in registration order and stops them in
// reverse, so dependencies must be registered first.
type Registry struct {
	mu    sync.RWMutex
	slots []*slot
	log   *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{log: log.WithComponent("components")}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(c.Name()) != nil {
		return fmt.Errorf("component %q registered twice", c.Name())
	}
	r.slots = append(r.slots, &slot{c: c})
	r.log.Debug("Component registered", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

func (r *Registry) find(name string) *slot {
	for _, s := range r.slots {
		if s.c.Name() == name {
			return s
		}
	}
	return nil
}

// Get returns the component called name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.find(name); s != nil {
		return s.c
	}
	return nil
}

// StartAll starts whatever is not running yet, so it can be called again
// after more components are registered. It stops at the first failure and
// leaves earlier components running for StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := 0
	for _, s := range r.slots {
		if s.running {
			continue
		}
		name := s.c.Name()
		begin := time.Now()
		if err := s.c.Start(ctx); err != nil {
			r.log.Error("Component failed to start", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			return fmt.Errorf("start %s: %w", name, err)
		}
		s.running = true
		started++
		r.log.Debug("Component started", logger.Fields(logger.FieldComponent, name, "duration_ms", time.Since(begin).Milliseconds()))
	}
	r.log.Info("Components started", logger.Fields("started", started, "total", len(r.slots)))
	return nil
}

// StopAll stops running components newest first, giving each its own
// deadline. Every failure is reported.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		if !s.running {
			continue
		}
		s.running = false
		name := s.c.Name()

		sctx, cancel := context.WithTimeout(ctx, stopTimeout)
		err := s.c.Stop(sctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			r.log.Error("Component failed to stop", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			continue
		}
		r.log.Info("Component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll checks every component concurrently and returns the results in
// registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	slots := append([]*slot(nil), r.slots...)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	out := make([]Health, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := s.c.Health(ctx)
			if h.Name == "" {
				h.Name = s.c.Name()
			}
			out[i] = h
		}()
	}
	wg.Wait()
	return out
}
