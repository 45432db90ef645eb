package server

import (
	"context"

	"github.com/kbukum/scribe/component"
)

// Component registers a Server with the lifecycle registry.
type Component struct {
	*Server
}

var _ component.Component = Component{}

func NewComponent(s *Server) Component { return Component{Server: s} }

func (Component) Name() string { return "http-server" }

func (c Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: c.Addr()}
	if !c.Listening() {
		h.Status, h.Message = component.StatusUnhealthy, "not listening"
	}
	return h
}
