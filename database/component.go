package database

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/database/migration"
	"github.com/kbukum/scribe/logger"
)

// Component owns the DB for the lifecycle registry. On Start postgres gets
// the versioned migrations and, when enabled, gorm auto-migration runs for
// the registered models.
type Component struct {
	cfg    Config
	log    *logger.Logger
	db     *DB
	models []any
	schema fs.FS
	dir    string
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithAutoMigrate adds models for gorm auto-migration.
func (c *Component) WithAutoMigrate(models ...any) *Component {
	c.models = append(c.models, models...)
	return c
}

// WithMigrations sets the SQL migrations applied to postgres.
func (c *Component) WithMigrations(fsys fs.FS, dir string) *Component {
	c.schema, c.dir = fsys, dir
	return c
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	db, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	c.db = db

	if c.schema != nil && db.Driver() == DriverPostgres {
		sqlDB, err := db.GormDB.DB()
		if err != nil {
			return err
		}
		res, err := migration.Up(sqlDB, c.schema, c.dir)
		if err != nil {
			return err
		}
		c.log.Info("Schema ready", logger.Fields("version", res.Version, "migrated", res.Changed))
	}
	if c.cfg.AutoMigrate && len(c.models) > 0 {
		return db.AutoMigrate(c.models...)
	}
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if c.db == nil {
		h.Message = "not connected"
		return h
	}
	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		h.Message = fmt.Sprintf("ping: %v", err)
		return h
	}
	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("%s ping %s", c.db.Driver(), time.Since(start).Round(time.Microsecond))
	return h
}
