package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// sqlitePragmas run on every SQLite open. Queue claims and ingest leases race
// on the same rows, so writers wait for the lock instead of failing.
var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// DB is the gorm handle shared by the job, queue and ledger stores.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config

	closeOnce sync.Once
	closeErr  error
}

func dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// New opens and pings the database, retrying with backoff up to
// cfg.ConnectAttempts times.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	log = log.WithComponent("database")

	gcfg := &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQuery, gormLevels[cfg.LogLevel]),
		TranslateError: true,
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    cfg.ConnectAttempts,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Database connection failed, retrying", logger.Fields(
				"attempt", attempt, logger.FieldError, err.Error(), "backoff", wait.String()))
		},
	}
	gdb, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		return open(ctx, d, gcfg, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Driver, err)
	}

	log.Info("Database connection established", logger.Fields("driver", cfg.Driver))
	return &DB{GormDB: gdb, log: log, cfg: cfg}, nil
}

func open(ctx context.Context, d gorm.Dialector, gcfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)

	if cfg.Driver == DriverSQLite {
		for _, p := range sqlitePragmas {
			if err := gdb.WithContext(ctx).Exec(p).Error; err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("%s: %w", p, err)
			}
		}
	}
	return gdb, nil
}

// Driver returns the configured driver name.
func (d *DB) Driver() string { return d.cfg.Driver }

// Close closes the pool once; later calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		sqlDB, err := d.GormDB.DB()
		if err != nil {
			d.closeErr = err
			return
		}
		d.log.Info("Closing database connection")
		d.closeErr = sqlDB.Close()
	})
	return d.closeErr
}

// PingContext checks the pool.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or alters tables for models.
func (d *DB) AutoMigrate(models ...any) error {
	if err := d.GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	d.log.Debug("Auto-migration complete", logger.Fields("models", len(models)))
	return nil
}

// WithTransaction runs fn in a transaction that commits when fn returns nil.
// gorm rolls back on error and on panic.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.GormDB.WithContext(ctx).Transaction(fn)
}
