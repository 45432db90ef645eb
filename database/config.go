package database

import (
	"errors"
	"fmt"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config selects the gorm dialector. Production runs postgres with the
// versioned SQL migrations; sqlite serves development and tests through
// AutoMigrate.
type Config struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`

	Pool PoolConfig `yaml:"pool" mapstructure:"pool"`

	// ConnectAttempts bounds the startup retries.
	ConnectAttempts int  `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	AutoMigrate     bool `yaml:"auto_migrate" mapstructure:"auto_migrate"`

	SlowQuery time.Duration `yaml:"slow_query" mapstructure:"slow_query"`
	// LogLevel is the gorm level: silent, error, warn or info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

type PoolConfig struct {
	MaxOpen     int           `yaml:"max_open" mapstructure:"max_open"`
	MaxIdle     int           `yaml:"max_idle" mapstructure:"max_idle"`
	MaxLifetime time.Duration `yaml:"max_lifetime" mapstructure:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time" mapstructure:"max_idle_time"`
}

func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	p := &c.Pool
	if p.MaxOpen <= 0 {
		p.MaxOpen = 25
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = 5
	}
	p.MaxIdle = min(p.MaxIdle, p.MaxOpen)
	if p.MaxLifetime == 0 {
		p.MaxLifetime = time.Hour
	}
	if p.MaxIdleTime == 0 {
		p.MaxIdleTime = 5 * time.Minute
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 5
	}
	if c.SlowQuery == 0 {
		c.SlowQuery = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Driver != DriverPostgres && c.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("driver %q is not postgres or sqlite", c.Driver))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	if c.Pool.MaxIdle > c.Pool.MaxOpen {
		errs = append(errs, fmt.Errorf("pool.max_idle %d exceeds pool.max_open %d", c.Pool.MaxIdle, c.Pool.MaxOpen))
	}
	if c.Pool.MaxLifetime < 0 || c.Pool.MaxIdleTime < 0 || c.SlowQuery < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, ok := gormLevels[c.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("log_level %q is unknown", c.LogLevel))
	}
	return errors.Join(errs...)
}
