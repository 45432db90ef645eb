package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component owns the Client lifecycle.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var _ component.Component = (*Component)(nil)

// NewComponent returns an unstarted component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil until Start succeeds.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start connects and fails when the first ping does.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}
	c.client = client
	c.log.Info("Redis connected", logger.Fields("addr", c.cfg.Addr))
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health is degraded, not unhealthy, on a failed ping: the reuse cache keeps
// serving from its in-process tier.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
		return h
	}
	start := time.Now()
	if err := c.client.Ping(ctx); err != nil {
		h.Status, h.Message = component.StatusDegraded, err.Error()
		return h
	}
	stats := c.client.rdb.PoolStats()
	h.Message = fmt.Sprintf("ping %s, conns %d/%d idle %d",
		time.Since(start).Round(time.Microsecond), stats.TotalConns, c.cfg.Pool.Size, stats.IdleConns)
	return h
}
