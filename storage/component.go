package storage

import (
	"context"

	"github.com/kbukum/scribe/component"
)

// Component reports backend reachability in /health. Start and Stop are
// no-ops; the backend holds no connection to release.
type Component struct {
	s Storage
}

var _ component.Component = (*Component)(nil)

func NewComponent(s Storage) *Component { return &Component{s: s} }

func (c *Component) Name() string                { return "storage" }
func (c *Component) Start(context.Context) error { return nil }
func (c *Component) Stop(context.Context) error  { return nil }

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.s.Name()}
	if !c.s.IsAvailable(ctx) {
		h.Status = component.StatusDegraded
		h.Message = c.s.Name() + " unreachable"
	}
	return h
}
