package redis

import (
	"errors"
	"time"

	"github.com/kbukum/scribe/security"
)

// Config for the shared reuse cache. With Enabled off the cache runs on its
// in-process tier only.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`

	Pool     PoolConfig         `yaml:"pool" mapstructure:"pool"`
	Timeouts TimeoutConfig      `yaml:"timeouts" mapstructure:"timeouts"`
	TLS      security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

type PoolConfig struct {
	Size        int           `yaml:"size" mapstructure:"size"`
	MinIdle     int           `yaml:"min_idle" mapstructure:"min_idle"`
	MaxIdleTime time.Duration `yaml:"max_idle_time" mapstructure:"max_idle_time"`
	Retries     int           `yaml:"retries" mapstructure:"retries"`
}

type TimeoutConfig struct {
	Dial  time.Duration `yaml:"dial" mapstructure:"dial"`
	Read  time.Duration `yaml:"read" mapstructure:"read"`
	Write time.Duration `yaml:"write" mapstructure:"write"`
}

func (c *Config) ApplyDefaults() {
	setInt(&c.Pool.Size, 10)
	setInt(&c.Pool.MinIdle, 2)
	setInt(&c.Pool.Retries, 3)
	setDuration(&c.Timeouts.Dial, 5*time.Second)
	setDuration(&c.Timeouts.Read, 3*time.Second)
	setDuration(&c.Timeouts.Write, 3*time.Second)
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Pool.MinIdle > c.Pool.Size {
		errs = append(errs, errors.New("pool.min_idle exceeds pool.size"))
	}
	if c.Timeouts.Dial < 0 || c.Timeouts.Read < 0 || c.Timeouts.Write < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	errs = append(errs, c.TLS.Validate())
	return errors.Join(errs...)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
